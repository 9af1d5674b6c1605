package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"factflow.app/backend/internal/cli"
	"factflow.app/backend/internal/feed"
)

type seedFact struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Content    string `json:"content"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
}

func runSeed(args []string) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "Path to a JSON array of facts (default: built-in starter facts)")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "seed does not accept positional arguments")
		return 2
	}

	facts, err := loadSeedFacts(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load seed facts: %v\n", err)
		return 1
	}
	if len(facts) == 0 {
		fmt.Fprintln(os.Stderr, "No facts to seed")
		return 1
	}

	ctx, cancel, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	if err := pool.SaveFacts(ctx, facts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save facts: %v\n", err)
		return 1
	}

	fmt.Printf("Seeded %d facts\n", len(facts))
	return 0
}

func loadSeedFacts(path string) ([]feed.Fact, error) {
	if strings.TrimSpace(path) == "" {
		return feed.FallbackFacts(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []seedFact
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	facts := make([]feed.Fact, 0, len(entries))
	for i, entry := range entries {
		content := strings.TrimSpace(entry.Content)
		if content == "" {
			return nil, fmt.Errorf("entry %d has empty content", i)
		}
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			id = "seed-" + uuid.NewString()
		}
		topic := strings.TrimSpace(entry.Topic)
		if topic == "" {
			topic = "General"
		}
		facts = append(facts, feed.Fact{
			ID:         id,
			Topic:      topic,
			Content:    content,
			SourceName: strings.TrimSpace(entry.SourceName),
			SourceURL:  strings.TrimSpace(entry.SourceURL),
		})
	}
	return facts, nil
}
