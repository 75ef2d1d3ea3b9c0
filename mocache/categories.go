package mocache

import "strings"

// CategoryAll disables note filtering.
const CategoryAll = "all"

// notes in the ERP are typed by hand; these spellings all occur
var categoryPatterns = map[string][]string{
	"liquid":    {"liquid"},
	"device":    {"device"},
	"cartridge": {"cartridge", "cartirdge", "cartrige"},
}

// Patterns returns the case-insensitive note substrings for a category.
// Unknown categories match their own name; "" and "all" match everything.
func Patterns(category string) []string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" || c == CategoryAll {
		return nil
	}
	if p, ok := categoryPatterns[c]; ok {
		return append([]string(nil), p...)
	}
	return []string{c}
}

// Categorize returns the first known category whose pattern occurs in note.
func Categorize(note string) string {
	n := strings.ToLower(note)
	for _, c := range []string{"liquid", "device", "cartridge"} {
		for _, p := range categoryPatterns[c] {
			if strings.Contains(n, p) {
				return c
			}
		}
	}
	return ""
}
