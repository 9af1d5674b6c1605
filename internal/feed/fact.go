package feed

// Fact is a single content unit served to the user. Liked/Saved/XPEarned
// describe the user's relationship to this instance in the current feed,
// not the fact's identity.
type Fact struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Content    string `json:"content"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
	Liked      bool   `json:"liked"`
	Saved      bool   `json:"saved"`
	XPEarned   bool   `json:"xp_earned"`
	IsAd       bool   `json:"is_ad,omitempty"`
}

// AllTopics is the fixed topic vocabulary used for pool replenishment and
// generation prompts.
var AllTopics = []string{
	"Science", "Space", "History", "Technology", "Nature", "Animals",
	"Human Body", "Psychology", "Art", "Music", "Sports", "Food",
	"Geography", "Business", "Mythology",
}
