package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	input := "  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line "
	got := CleanText(input)
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	input := "abcdefghijklmnopqrstuvwxyz"

	got, truncated := TruncateText(input, 10)
	if !truncated {
		t.Fatalf("expected truncated=true")
	}
	if got != "abcdefghi…" {
		t.Fatalf("unexpected truncated text: %q", got)
	}

	full, wasTruncated := TruncateText("short", 10)
	if wasTruncated {
		t.Fatalf("expected truncated=false for short text")
	}
	if full != "short" {
		t.Fatalf("unexpected short text: %q", full)
	}
}

func TestPreviewerExcerptFromPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("The  quick brown fox.\n\nJumps over the lazy dog."))
	}))
	defer srv.Close()

	p := NewPreviewer(WithExcerptRunes(200))
	excerpt, truncated, err := p.Excerpt(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Excerpt: %v", err)
	}
	if truncated {
		t.Fatal("short excerpt reported as truncated")
	}
	want := "The quick brown fox.\n\nJumps over the lazy dog."
	if excerpt != want {
		t.Fatalf("excerpt mismatch\nwant: %q\ngot:  %q", want, excerpt)
	}
}

func TestPreviewerRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewPreviewer()
	if _, _, err := p.Excerpt(context.Background(), srv.URL, "fallback"); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}
