package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"factflow.app/backend/internal/db"
	"factflow.app/backend/internal/feed"
)

type seenRequest struct {
	Content string `json:"content"`
}

type likeRequest struct {
	Liked bool `json:"liked"`
}

type profileUpdateRequest struct {
	Topics []string `json:"topics"`
}

type shareRequest struct {
	FactID     string `json:"fact_id"`
	Topic      string `json:"topic"`
	Content    string `json:"content"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
}

func (s *Server) handleFeed(c echo.Context) error {
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), feed.DefaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}
	topics := splitTopics(c.QueryParam("topics"))

	sess := s.sessions.Session(c.Request().Context(), userKey(c))
	facts := sess.NextPage(c.Request().Context(), topics, pageSize)

	return success(c, map[string]any{
		"items": facts,
		"count": len(facts),
	})
}

func (s *Server) handleFactSeen(c echo.Context) error {
	factID := strings.TrimSpace(c.Param("fact_id"))
	if factID == "" {
		return failValidation(c, map[string]string{"fact_id": "must not be empty"})
	}

	var req seenRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		// Fall back to the pool copy so the content hash is still recorded.
		if fact, lookupErr := s.store.FactByID(c.Request().Context(), factID); lookupErr == nil {
			content = fact.Content
		}
	}

	sess := s.sessions.Session(c.Request().Context(), userKey(c))
	sess.Ledger().MarkSeen(factID, content)

	profile, credited := s.recorder.CreditView(c.Request().Context(), userKey(c), factID)
	return success(c, map[string]any{
		"credited": credited,
		"profile":  profile,
	})
}

func (s *Server) handleFactLike(c echo.Context) error {
	factID := strings.TrimSpace(c.Param("fact_id"))
	if factID == "" {
		return failValidation(c, map[string]string{"fact_id": "must not be empty"})
	}

	var req likeRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	sess := s.sessions.Session(c.Request().Context(), userKey(c))
	sess.Ledger().RecordLike(factID, req.Liked)

	return success(c, map[string]any{
		"fact_id": factID,
		"liked":   req.Liked,
	})
}

func (s *Server) handleFactPreview(c echo.Context) error {
	factID := strings.TrimSpace(c.Param("fact_id"))
	if factID == "" {
		return failValidation(c, map[string]string{"fact_id": "must not be empty"})
	}

	fact, err := s.store.FactByID(c.Request().Context(), factID)
	if err != nil {
		if db.IsNoRows(err) {
			return notFound(c, "Fact not found")
		}
		s.logger.Error().Err(err).Str("fact_id", factID).Msg("fact lookup failed")
		return internalError(c, "Failed to load fact")
	}
	if strings.TrimSpace(fact.SourceURL) == "" || fact.SourceURL == "#" {
		return notFound(c, "Fact has no source to preview")
	}

	excerpt, truncated, err := s.previewer.Excerpt(c.Request().Context(), fact.SourceURL, fact.Content)
	if err != nil {
		s.logger.Warn().Err(err).Str("fact_id", factID).Msg("source preview fetch failed")
		return fail(c, http.StatusUnprocessableEntity, "Source preview unavailable", nil)
	}
	return success(c, map[string]any{
		"fact_id":    fact.ID,
		"source_url": fact.SourceURL,
		"excerpt":    excerpt,
		"truncated":  truncated,
	})
}

func (s *Server) handlePoolStats(c echo.Context) error {
	stats, err := s.store.PoolStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("pool stats query failed")
		return internalError(c, "Failed to load pool stats")
	}

	var total int64
	for _, count := range stats {
		total += count
	}
	return success(c, map[string]any{
		"topics": stats,
		"total":  total,
	})
}

func (s *Server) handleProfile(c echo.Context) error {
	profile := s.recorder.Profile(c.Request().Context(), userKey(c))
	return success(c, profile)
}

func (s *Server) handleProfileUpdate(c echo.Context) error {
	var req profileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	topics := make([]string, 0, len(req.Topics))
	for _, topic := range req.Topics {
		trimmed := strings.TrimSpace(topic)
		if trimmed == "" {
			continue
		}
		topics = append(topics, trimmed)
	}

	key := userKey(c)
	profile := s.recorder.UpdateTopics(c.Request().Context(), key, topics)

	// Topic changes restart the stream; the seen ledger carries over.
	s.sessions.Session(c.Request().Context(), key).Clear()

	return success(c, profile)
}

func (s *Server) handleShareCreate(c echo.Context) error {
	var req shareRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	fact := feed.Fact{
		ID:         strings.TrimSpace(req.FactID),
		Topic:      strings.TrimSpace(req.Topic),
		Content:    strings.TrimSpace(req.Content),
		SourceName: strings.TrimSpace(req.SourceName),
		SourceURL:  strings.TrimSpace(req.SourceURL),
	}
	if fact.ID != "" && fact.Content == "" {
		if pooled, err := s.store.FactByID(c.Request().Context(), fact.ID); err == nil {
			fact = pooled
		}
	}
	if fact.Content == "" {
		return failValidation(c, map[string]string{"content": "must not be empty"})
	}

	shareID, err := s.store.CreateSharedFact(c.Request().Context(), fact)
	if err != nil {
		s.logger.Error().Err(err).Msg("share create failed")
		return internalError(c, "Failed to create share link")
	}

	return created(c, map[string]any{
		"share_id": shareID,
		"path":     "/api/v1/shared/" + shareID,
	})
}

func (s *Server) handleSharedFact(c echo.Context) error {
	shareID := strings.TrimSpace(c.Param("share_id"))
	if shareID == "" {
		return failValidation(c, map[string]string{"share_id": "must not be empty"})
	}

	fact, err := s.store.SharedFact(c.Request().Context(), shareID)
	if err != nil {
		if db.IsNoRows(err) {
			return notFound(c, "Share link not found")
		}
		s.logger.Error().Err(err).Str("share_id", shareID).Msg("shared fact lookup failed")
		return internalError(c, "Failed to load shared fact")
	}
	return success(c, fact)
}

func splitTopics(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, part := range parts {
		topic := strings.TrimSpace(part)
		if topic == "" {
			continue
		}
		topics = append(topics, topic)
	}
	return topics
}
