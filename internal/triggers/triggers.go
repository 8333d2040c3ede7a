package triggers

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"screenreview/internal/transcribe"
)

// Category ranking. Earlier entries win when a segment matches several
// categories. Configured categories outside this list rank after it.
var priorityOrder = []string{
	"high_priority",
	"bug",
	"remove",
	"add",
	"resize",
	"move",
	"restyle",
	"text",
	"navigation",
	"ok",
}

// defaultWords maps each category to its German and English keywords.
var defaultWords = map[string][]string{
	"high_priority": {"wichtig", "dringend", "kritisch", "sofort", "urgent", "critical", "important"},
	"bug":           {"bug", "fehler", "kaputt", "defekt", "broken", "funktioniert nicht", "geht nicht", "error", "falsch"},
	"remove":        {"entfernen", "löschen", "weg damit", "raus damit", "remove", "delete"},
	"add":           {"hinzufügen", "ergänzen", "fehlt", "add", "missing"},
	"resize":        {"größer", "kleiner", "breiter", "schmaler", "vergrößern", "verkleinern", "resize", "bigger", "smaller"},
	"move":          {"verschieben", "nach links", "nach rechts", "nach oben", "nach unten", "move", "verschoben"},
	"restyle":       {"farbe", "umgestalten", "anderes design", "style", "color", "styling"},
	"text":          {"text ändern", "umbenennen", "umformulieren", "rename", "wording", "typo", "tippfehler"},
	"navigation":    {"weiter", "nächste seite", "zurück", "next page", "navigation"},
	"ok":            {"passt", "gut so", "in ordnung", "okay", "ok", "looks good", "sieht gut aus"},
}

// Match is one keyword hit inside a segment.
type Match struct {
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
}

// Event is a trigger occurrence on the recording timeline, anchored at the
// start of the segment that contained it.
type Event struct {
	Time     float64 `json:"time"`
	Category string  `json:"category"`
	Keyword  string  `json:"keyword"`
	Text     string  `json:"text"`
}

// AnnotatedSegment is a transcript segment plus its trigger classification.
type AnnotatedSegment struct {
	transcribe.Segment
	Matches []Match `json:"triggers,omitempty"`
	Primary string  `json:"primary_trigger,omitempty"`
}

// Classifier matches folded keywords on word boundaries.
type Classifier struct {
	order  []string
	words  map[string][]keyword
	folder cases.Caser
}

type keyword struct {
	display string
	folded  string
}

// NewClassifier builds a classifier from the default vocabulary with the
// given per-category overrides. An override replaces the category's keyword
// list entirely; categories not in the default ranking rank after it, in
// name order.
func NewClassifier(overrides map[string][]string) *Classifier {
	c := &Classifier{
		words:  make(map[string][]keyword),
		folder: cases.Fold(),
	}
	merged := make(map[string][]string, len(defaultWords))
	for category, list := range defaultWords {
		merged[category] = list
	}
	for category, list := range overrides {
		merged[category] = list
	}

	var extra []string
	known := make(map[string]bool, len(priorityOrder))
	for _, category := range priorityOrder {
		known[category] = true
	}
	for category := range merged {
		if !known[category] {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)

	for _, category := range append(append([]string{}, priorityOrder...), extra...) {
		list, ok := merged[category]
		if !ok || len(list) == 0 {
			continue
		}
		c.order = append(c.order, category)
		for _, word := range list {
			word = strings.TrimSpace(word)
			if word == "" {
				continue
			}
			c.words[category] = append(c.words[category], keyword{
				display: word,
				folded:  c.folder.String(word),
			})
		}
	}
	return c
}

// Classify returns all keyword matches in text, ordered by category rank.
// Each category reports at most its first matching keyword.
func (c *Classifier) Classify(text string) []Match {
	folded := c.folder.String(text)
	var matches []Match
	for _, category := range c.order {
		for _, kw := range c.words[category] {
			if containsWord(folded, kw.folded) {
				matches = append(matches, Match{Category: category, Keyword: kw.display})
				break
			}
		}
	}
	return matches
}

// Annotate classifies every segment and collects the trigger events used for
// frame retention and the trigger artifact.
func (c *Classifier) Annotate(segments []transcribe.Segment) ([]AnnotatedSegment, []Event) {
	annotated := make([]AnnotatedSegment, 0, len(segments))
	var events []Event
	for _, seg := range segments {
		matches := c.Classify(seg.Text)
		entry := AnnotatedSegment{Segment: seg, Matches: matches}
		if len(matches) > 0 {
			entry.Primary = matches[0].Category
		}
		annotated = append(annotated, entry)
		for _, m := range matches {
			events = append(events, Event{
				Time:     seg.Start,
				Category: m.Category,
				Keyword:  m.Keyword,
				Text:     strings.TrimSpace(seg.Text),
			})
		}
	}
	return annotated, events
}

// containsWord reports whether needle occurs in haystack bounded by
// non-letter, non-digit runes. Both inputs are already case folded.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for offset := 0; ; {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		offset = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
