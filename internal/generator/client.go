package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"factflow.app/backend/internal/feed"
	"factflow.app/backend/internal/langdetect"
)

const (
	// DefaultEndpoint points to an OpenAI-compatible chat completions host.
	DefaultEndpoint = "https://api.groq.com/openai/v1"
	// DefaultModel is the default generation model name.
	DefaultModel = "llama-3.3-70b-versatile"

	defaultBatchSize = 5
	requestTimeout   = 60 * time.Second
)

const systemPrompt = "You are a fact generator for a trivia feed. Respond with a JSON array only, no prose and no markdown fences. Each element is an object with keys: topic, content, source_name, source_url. Content is a single surprising, verifiable fact of one to three sentences, written in English."

// Client generates facts by calling an OpenAI-compatible chat completions
// endpoint and validating the returned batch.
type Client struct {
	endpointURL string
	model       string
	apiKey      string
	batchSize   int
	client      *http.Client
	logger      zerolog.Logger
}

func NewClient(endpoint, model, apiKey string, logger zerolog.Logger) *Client {
	trimmedModel := strings.TrimSpace(model)
	if trimmedModel == "" {
		trimmedModel = DefaultModel
	}
	return &Client{
		endpointURL: chatCompletionsURL(normalizeEndpoint(endpoint)),
		model:       trimmedModel,
		apiKey:      strings.TrimSpace(apiKey),
		batchSize:   defaultBatchSize,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// GenerateFacts asks the model for a batch of facts about the hinted topics
// and returns the validated, English-language subset. A batch that fails
// schema validation is discarded whole.
func (c *Client) GenerateFacts(ctx context.Context, topicHints []string, exclude []string) ([]feed.Fact, error) {
	if c == nil {
		return nil, fmt.Errorf("generator client is nil")
	}

	topic := pickTopic(topicHints)
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(topic, pickSubtopic(topic), c.batchSize, exclude)},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send generation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generation response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errPayload chatErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errPayload); unmarshalErr == nil {
			if msg := strings.TrimSpace(errPayload.Error.Message); msg != "" {
				return nil, fmt.Errorf("generation endpoint status %d: %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("generation endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("generation response missing choices")
	}

	raw := stripCodeFences(parsed.Choices[0].Message.Content)
	items, err := validateBatch([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("discard generated batch: %w", err)
	}

	facts := make([]feed.Fact, 0, len(items))
	for _, item := range items {
		if code := langdetect.DetectISO6391(item.Content); code != "" && code != "en" {
			c.logger.Debug().Str("lang", code).Msg("dropping non-English generated fact")
			continue
		}
		sourceName := strings.TrimSpace(item.SourceName)
		if sourceName == "" {
			sourceName = "FactFlow AI"
		}
		facts = append(facts, feed.Fact{
			ID:         "gen-" + uuid.NewString(),
			Topic:      strings.TrimSpace(item.Topic),
			Content:    strings.TrimSpace(item.Content),
			SourceName: sourceName,
			SourceURL:  strings.TrimSpace(item.SourceURL),
		})
	}
	return facts, nil
}

func pickTopic(topicHints []string) string {
	for _, hint := range topicHints {
		if strings.TrimSpace(hint) != "" {
			return hint
		}
	}
	return feed.AllTopics[rand.Intn(len(feed.AllTopics))]
}

// subtopics narrows each topic to a specific angle per batch. Broad topic
// prompts make models converge on the same handful of famous facts; a
// sampled subtopic spreads the batches out.
var subtopics = map[string][]string{
	"Science":    {"chemistry of everyday materials", "failed experiments that led to discoveries", "extremophile biology", "the physics of sound"},
	"Space":      {"moons other than ours", "spacecraft that went wrong", "the interstellar medium", "dwarf planets and asteroids"},
	"History":    {"ancient engineering", "trade routes and their side effects", "forgotten inventions", "daily life in past centuries"},
	"Technology": {"obsolete formats and machines", "accidental inventions", "early computing", "infrastructure nobody notices"},
	"Nature":     {"fungi and lichens", "extreme weather records", "plant communication", "rivers and cave systems"},
	"Animals":    {"deep-sea creatures", "animal navigation", "unusual parenting strategies", "insect engineering"},
	"Human Body": {"the microbiome", "sleep and circadian rhythms", "odd reflexes and vestigial parts", "how senses can be fooled"},
	"Psychology": {"memory distortions", "decision-making biases", "perception illusions", "habit formation"},
	"Art":        {"pigments and materials", "forgeries and attribution disputes", "unfinished masterpieces", "street and outsider art"},
	"Music":      {"instrument acoustics", "lost and reconstructed works", "how genres got their names", "music and the brain"},
	"Sports":     {"discontinued olympic events", "equipment evolution", "statistical oddities", "endurance feats"},
	"Food":       {"fermentation", "spice trade history", "food preservation before refrigeration", "ingredients with surprising origins"},
	"Geography":  {"borders with strange shapes", "islands and exclaves", "place-name origins", "extreme points of the earth"},
	"Business":   {"companies that pivoted completely", "historical currencies", "logistics behind everyday goods", "famous product failures"},
	"Mythology":  {"creation myths compared", "monsters across cultures", "myths behind constellations", "rituals and their origins"},
}

var genericAngles = []string{
	"little-known origins",
	"surprising measurements and records",
	"common misconceptions corrected",
	"recent discoveries",
}

func pickSubtopic(topic string) string {
	if angles, ok := subtopics[topic]; ok && len(angles) > 0 {
		return angles[rand.Intn(len(angles))]
	}
	return genericAngles[rand.Intn(len(genericAngles))]
}

func buildPrompt(topic, subtopic string, batchSize int, exclude []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d distinct facts about %s.", batchSize, topic)
	if strings.TrimSpace(subtopic) != "" {
		fmt.Fprintf(&b, " Focus on %s.", subtopic)
	}
	if len(exclude) > 0 {
		capped := exclude
		if len(capped) > 20 {
			capped = capped[:20]
		}
		b.WriteString(" Avoid repeating these known facts:\n")
		for _, known := range capped {
			fmt.Fprintf(&b, "- %s\n", known)
		}
	}
	return b.String()
}

// stripCodeFences tolerates models that wrap the JSON array in a markdown
// block despite the instructions.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = "/v1"
	}
	return parsed.String()
}

func chatCompletionsURL(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultEndpoint + "/chat/completions"
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		parsed.Path = path
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + "/chat/completions"
	case path == "":
		parsed.Path = "/v1/chat/completions"
	default:
		parsed.Path = path + "/v1/chat/completions"
	}
	return parsed.String()
}
