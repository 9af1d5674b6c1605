package fingerprint

import (
	"regexp"
	"strings"
)

const minPhraseLen = 2

var (
	numberWithUnitPattern = regexp.MustCompile(`(?i)[0-9][0-9,.]*(?:\s?(?:million|billion|trillion|thousand|percent|degrees|kilometers|kilometres|km|miles|meters|metres|feet|years|days|hours|seconds|tons|tonnes|pounds|kilograms|kg|grams|mph|hertz|volts|watts|celsius|fahrenheit|lightyears|times))?`)
	multiWordNounPattern  = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)
)

// scienceTerms is the fixed vocabulary treated as strong duplicate evidence
// when it reappears across facts.
var scienceTerms = []string{
	"dna", "rna", "quantum", "neutron", "electron", "molecule", "atom",
	"protein", "enzyme", "bacteria", "virus", "galaxy", "planet",
	"species", "genus",
}

var scienceTermPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(scienceTerms, "|") + `)\b`)

// unitAliases folds spelled-out measurement units onto their abbreviation
// so "384,400 kilometers" and "384,400 km" produce the same phrase.
var unitAliases = map[string]string{
	"kilometers": "km",
	"kilometres": "km",
	"meters":     "m",
	"metres":     "m",
	"kilograms":  "kg",
	"grams":      "g",
	"tonnes":     "tons",
}

// KeyPhrases extracts the distinctive phrases of a fact: measurements with
// their unit, multi-word proper-noun spans, and whole-word science terms.
// Results are lowercased; phrases of two characters or fewer are dropped.
func KeyPhrases(content string) []string {
	var phrases []string
	seen := make(map[string]struct{})

	add := func(raw string) {
		phrase := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), ".,")
		if fields := strings.Fields(phrase); len(fields) == 2 {
			if alias, ok := unitAliases[fields[1]]; ok {
				phrase = fields[0] + " " + alias
			}
		}
		if len(phrase) <= minPhraseLen {
			return
		}
		if _, ok := seen[phrase]; ok {
			return
		}
		seen[phrase] = struct{}{}
		phrases = append(phrases, phrase)
	}

	for _, match := range numberWithUnitPattern.FindAllString(content, -1) {
		add(match)
	}
	for _, match := range multiWordNounPattern.FindAllString(content, -1) {
		add(match)
	}
	for _, match := range scienceTermPattern.FindAllString(content, -1) {
		add(match)
	}

	return phrases
}
