package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"factflow.app/backend/internal/cli"
	"factflow.app/backend/internal/db"
	"factflow.app/backend/internal/generator"
	"factflow.app/backend/internal/logging"
)

func runGenerate(args []string) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	topic := fs.String("topic", "", "Topic to generate facts for (default: random)")
	save := fs.Bool("save", false, "Save generated facts to the candidate pool")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatJSON, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "generate does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, err := loadConfigWithEnv(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	client := generator.NewClient(cfg.GeneratorEndpoint, cfg.GeneratorModel, cfg.GeneratorAPIKey, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var topicHints []string
	if strings.TrimSpace(*topic) != "" {
		topicHints = []string{strings.TrimSpace(*topic)}
	}

	var pool *db.Pool
	var exclude []string
	if *save {
		var poolErr error
		pool, poolErr = db.NewPool(ctx, cfg)
		if poolErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", poolErr)
			return 1
		}
		defer pool.Close()

		// Tell the model what the pool already holds for this topic.
		if pooled, fetchErr := pool.FetchCandidatePool(ctx, topicHints, 20); fetchErr == nil {
			for _, fact := range pooled {
				exclude = append(exclude, fact.Content)
			}
		}
	}

	facts, err := client.GenerateFacts(ctx, topicHints, exclude)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		return 1
	}
	if len(facts) == 0 {
		fmt.Fprintln(os.Stderr, "Generation produced no usable facts")
		return 1
	}

	if pool != nil {
		if saveErr := pool.SaveFacts(ctx, facts); saveErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to save facts: %v\n", saveErr)
			return 1
		}
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(facts); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(facts))
	for _, fact := range facts {
		rows = append(rows, []string{fact.ID, fact.Topic, fact.Content})
	}
	if err := writeTable([]string{"ID", "TOPIC", "CONTENT"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}
