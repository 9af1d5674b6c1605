package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"factflow.app/backend/internal/feed"
)

const shareIDLen = 8

// CreateSharedFact snapshots a fact under a short share id and returns the
// id. Snapshotting keeps the link stable even if the pool entry is evicted.
func (p *Pool) CreateSharedFact(ctx context.Context, fact feed.Fact) (string, error) {
	if strings.TrimSpace(fact.Content) == "" {
		return "", fmt.Errorf("cannot share a fact with empty content")
	}

	shareID := newShareID()
	const query = `
INSERT INTO factflow.shared_facts (share_id, fact_id, topic, content, source_name, source_url)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := p.Exec(ctx, query, shareID, fact.ID, fact.Topic, fact.Content, fact.SourceName, fact.SourceURL); err != nil {
		return "", fmt.Errorf("insert shared fact: %w", err)
	}
	return shareID, nil
}

// SharedFact resolves a share id back to the snapshotted fact.
func (p *Pool) SharedFact(ctx context.Context, shareID string) (feed.Fact, error) {
	const query = `
SELECT sf.fact_id, sf.topic, sf.content, sf.source_name, sf.source_url
FROM factflow.shared_facts sf
WHERE sf.share_id = $1
`
	var fact feed.Fact
	err := p.QueryRow(ctx, query, shareID).Scan(&fact.ID, &fact.Topic, &fact.Content, &fact.SourceName, &fact.SourceURL)
	if err != nil {
		if IsNoRows(err) {
			return feed.Fact{}, fmt.Errorf("share %s: %w", shareID, ErrNoRows)
		}
		return feed.Fact{}, fmt.Errorf("query shared fact: %w", err)
	}
	return fact, nil
}

func newShareID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:shareIDLen]
}
