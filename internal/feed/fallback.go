package feed

import (
	"math/rand"

	"github.com/google/uuid"
)

// fallbackFacts is served only when both the cached pool and the generator
// fail. Deliberately obscure entries so a fallback page still feels fresh.
var fallbackFacts = []Fact{
	{Topic: "Space", Content: "The footprints on the Moon will last for millions of years because there is no wind to blow them away.", SourceName: "NASA", SourceURL: "https://nasa.gov"},
	{Topic: "Science", Content: "A single raindrop contains more molecules than there are raindrops in all the clouds on Earth.", SourceName: "Nature", SourceURL: "https://nature.com"},
	{Topic: "Animals", Content: "Tardigrades can survive in the vacuum of space for 10 days and still reproduce afterward.", SourceName: "Smithsonian", SourceURL: "https://si.edu"},
	{Topic: "History", Content: "The Great Wall of China is not visible from space with the naked eye, despite popular belief.", SourceName: "ESA", SourceURL: "https://esa.int"},
	{Topic: "Human Body", Content: "Your stomach gets an entirely new lining every 3-5 days because stomach acid would digest it.", SourceName: "NIH", SourceURL: "https://nih.gov"},
	{Topic: "Technology", Content: "The first computer bug was an actual bug - a moth trapped in a Harvard computer in 1947.", SourceName: "IEEE", SourceURL: "https://ieee.org"},
	{Topic: "Nature", Content: "Trees can communicate with each other through underground fungal networks called mycorrhizae.", SourceName: "Science", SourceURL: "https://science.org"},
	{Topic: "Psychology", Content: "The smell of rain has a name: petrichor, from Greek words meaning \"stone\" and \"the fluid of the gods\".", SourceName: "Nature", SourceURL: "https://nature.com"},
}

// FallbackFacts returns a shuffled copy of the built-in fallback set with
// fresh ids, so repeated fallback pages never collide on id.
func FallbackFacts() []Fact {
	facts := make([]Fact, len(fallbackFacts))
	copy(facts, fallbackFacts)
	shuffleFacts(facts, rand.Intn)
	for i := range facts {
		facts[i].ID = "fb-" + uuid.NewString()
	}
	return facts
}
