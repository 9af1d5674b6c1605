package feed

import (
	"strings"

	"github.com/google/uuid"
)

const (
	contentPrefixLen = 50

	// adSpliceIndex keeps the sponsored slot out of the first two freshly
	// appended positions while still landing within one scroll session.
	adSpliceIndex = 2

	sponsoredTopic    = "Sponsored"
	adPlaceholderBody = "AD_PLACEHOLDER"
	adPlaceholderName = "Ads"
)

// MergeIntoFeed consolidates a freshly loaded page against the existing
// feed: cross-page id and content-prefix dedup, no-consecutive-topic
// suppression, and periodic sponsored-slot insertion. It returns only the
// accepted slice to append; callers own tracking the accepted facts.
func MergeIntoFeed(existing, newPage []Fact, adInterval int) []Fact {
	if adInterval <= 0 {
		adInterval = DefaultAdInterval
	}

	existingIDs := make(map[string]struct{}, len(existing))
	existingPrefixes := make(map[string]struct{}, len(existing))
	lastTopic := ""
	for _, fact := range existing {
		existingIDs[fact.ID] = struct{}{}
		existingPrefixes[contentPrefix(fact.Content)] = struct{}{}
		if !fact.IsAd {
			lastTopic = fact.Topic
		}
	}

	accepted := make([]Fact, 0, len(newPage))
	for _, fact := range newPage {
		if _, ok := existingIDs[fact.ID]; ok {
			continue
		}
		prefix := contentPrefix(fact.Content)
		if _, ok := existingPrefixes[prefix]; ok {
			continue
		}
		// Topic spacing looks at the running accepted list, so suppression
		// compounds correctly across runs of same-topic candidates.
		if fact.Topic == lastTopic {
			continue
		}
		accepted = append(accepted, fact)
		existingIDs[fact.ID] = struct{}{}
		existingPrefixes[prefix] = struct{}{}
		lastTopic = fact.Topic
	}

	currentTotal := len(existing)
	if (currentTotal+len(accepted))/adInterval > currentTotal/adInterval {
		accepted = spliceAd(accepted)
	}

	return accepted
}

func spliceAd(accepted []Fact) []Fact {
	ad := Fact{
		ID:         "ad-" + uuid.NewString(),
		Topic:      sponsoredTopic,
		Content:    adPlaceholderBody,
		SourceName: adPlaceholderName,
		SourceURL:  "#",
		XPEarned:   true,
		IsAd:       true,
	}

	idx := adSpliceIndex
	if idx > len(accepted) {
		idx = len(accepted)
	}

	out := make([]Fact, 0, len(accepted)+1)
	out = append(out, accepted[:idx]...)
	out = append(out, ad)
	out = append(out, accepted[idx:]...)
	return out
}

func contentPrefix(content string) string {
	lowered := strings.ToLower(content)
	if len(lowered) > contentPrefixLen {
		lowered = lowered[:contentPrefixLen]
	}
	return lowered
}
