package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func chatReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode reply: %v", err)
		}
	}
}

func TestGenerateFacts_ParsesValidBatch(t *testing.T) {
	t.Parallel()

	batch := `[
		{"topic": "Science", "content": "Octopuses have three hearts and their blood is blue because it is copper based.", "source_name": "Ocean Institute", "source_url": "https://example.org/octopus"},
		{"topic": "Space", "content": "A day on Venus lasts longer than an entire year on Venus."}
	]`
	srv := httptest.NewServer(chatReply(t, batch))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "key", zerolog.Nop())
	facts, err := client.GenerateFacts(context.Background(), []string{"Science"}, nil)
	if err != nil {
		t.Fatalf("GenerateFacts: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	for _, fact := range facts {
		if !strings.HasPrefix(fact.ID, "gen-") {
			t.Fatalf("generated fact id %q missing prefix", fact.ID)
		}
	}
	if facts[0].SourceName != "Ocean Institute" {
		t.Fatalf("source name not mapped: %q", facts[0].SourceName)
	}
	if facts[1].SourceName != "FactFlow AI" {
		t.Fatalf("missing source name not defaulted: %q", facts[1].SourceName)
	}
}

func TestGenerateFacts_StripsMarkdownFence(t *testing.T) {
	t.Parallel()

	content := "```json\n[{\"topic\": \"Nature\", \"content\": \"Honey found in ancient tombs is still perfectly edible after thousands of years.\"}]\n```"
	srv := httptest.NewServer(chatReply(t, content))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "", zerolog.Nop())
	facts, err := client.GenerateFacts(context.Background(), []string{"Nature"}, nil)
	if err != nil {
		t.Fatalf("GenerateFacts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
}

func TestGenerateFacts_DiscardsMalformedBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatReply(t, "Sure! Here are some facts you might enjoy."))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "", zerolog.Nop())
	if _, err := client.GenerateFacts(context.Background(), nil, nil); err == nil {
		t.Fatal("expected a prose reply to be discarded")
	}
}

func TestGenerateFacts_RejectsItemsMissingContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(chatReply(t, `[{"topic": "Science"}]`))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "", zerolog.Nop())
	if _, err := client.GenerateFacts(context.Background(), nil, nil); err == nil {
		t.Fatal("expected schema validation to reject the batch")
	}
}

func TestGenerateFacts_DropsNonEnglishItems(t *testing.T) {
	t.Parallel()

	batch := `[
		{"topic": "Science", "content": "Los pulpos tienen tres corazones y su sangre es azul porque contiene cobre en lugar de hierro."},
		{"topic": "Science", "content": "Sharks existed before trees appeared anywhere on the planet Earth."}
	]`
	srv := httptest.NewServer(chatReply(t, batch))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "", zerolog.Nop())
	facts, err := client.GenerateFacts(context.Background(), []string{"Science"}, nil)
	if err != nil {
		t.Fatalf("GenerateFacts: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected the Spanish item dropped, got %d facts", len(facts))
	}
	if !strings.Contains(facts[0].Content, "Sharks") {
		t.Fatalf("wrong survivor: %q", facts[0].Content)
	}
}

func TestGenerateFacts_ErrorStatusSurfacesMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-model", "", zerolog.Nop())
	_, err := client.GenerateFacts(context.Background(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Fatalf("expected the endpoint message in the error, got %v", err)
	}
}

func TestChatCompletionsURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://api.example.com/v1", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com", "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/v1/chat/completions", "https://api.example.com/v1/chat/completions"},
		{"api.example.com", "https://api.example.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		if got := chatCompletionsURL(normalizeEndpoint(tc.in)); got != tc.want {
			t.Fatalf("endpoint %q: got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestPickSubtopic_SamplesFromTopicList(t *testing.T) {
	t.Parallel()

	known := make(map[string]bool, len(subtopics["Space"]))
	for _, angle := range subtopics["Space"] {
		known[angle] = true
	}
	for i := 0; i < 50; i++ {
		if angle := pickSubtopic("Space"); !known[angle] {
			t.Fatalf("subtopic %q is not in the Space list", angle)
		}
	}

	generic := make(map[string]bool, len(genericAngles))
	for _, angle := range genericAngles {
		generic[angle] = true
	}
	if angle := pickSubtopic("Cryptozoology"); !generic[angle] {
		t.Fatalf("unknown topic should fall back to a generic angle, got %q", angle)
	}
}

func TestBuildPrompt_SubtopicAndExclusions(t *testing.T) {
	t.Parallel()

	exclude := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		exclude = append(exclude, fmt.Sprintf("known fact %d", i))
	}

	prompt := buildPrompt("Space", "dwarf planets and asteroids", 5, exclude)
	if !strings.Contains(prompt, "Generate 5 distinct facts about Space.") {
		t.Fatalf("prompt missing the batch request: %q", prompt)
	}
	if !strings.Contains(prompt, "Focus on dwarf planets and asteroids.") {
		t.Fatalf("prompt missing the subtopic focus: %q", prompt)
	}
	if !strings.Contains(prompt, "- known fact 0\n") || !strings.Contains(prompt, "- known fact 19\n") {
		t.Fatalf("prompt missing exclusion entries: %q", prompt)
	}
	if strings.Contains(prompt, "known fact 20") {
		t.Fatalf("exclusion list should be capped at 20 entries: %q", prompt)
	}
}
