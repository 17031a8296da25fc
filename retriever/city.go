package retriever

import (
	"strings"
	"unicode"

	"github.com/mkarasev/daytrip/event"
)

// cityVariants maps a nominative city name (lowercased) to its declined
// forms. Russian noun declension makes plain substring matching miss most
// natural phrasings ("в Москве", "из Казани"), so frequent cities carry an
// explicit variant list. A stopgap, kept deliberately small.
var cityVariants = map[string][]string{
	"москва":          {"москва", "москве", "москву", "москвы", "москвой"},
	"санкт-петербург": {"санкт-петербург", "санкт-петербурге", "санкт-петербурга", "петербург", "петербурге", "петербурга", "питер", "питере", "питера", "спб"},
	"казань":          {"казань", "казани", "казанью"},
	"екатеринбург":    {"екатеринбург", "екатеринбурге", "екатеринбурга"},
	"новосибирск":     {"новосибирск", "новосибирске", "новосибирска"},
	"нижний новгород": {"нижний новгород", "нижнем новгороде", "нижнего новгорода"},
	"сочи":            {"сочи"},
}

// declensionSuffixes are stripped from unlisted city names to build a stem
// that survives the common case endings.
var declensionSuffixes = []string{"ой", "ом", "ый", "ая", "ия", "ии", "ию", "а", "я", "е", "и", "у", "ы", "ь"}

// matchesCity reports whether the event's location or country text mentions
// the city as a whole word, in any known declined form.
func matchesCity(e event.Event, city string) bool {
	haystack := strings.ToLower(e.Location + " " + e.Country)
	needle := strings.ToLower(strings.TrimSpace(city))
	if needle == "" {
		return true
	}

	if variants, ok := cityVariants[needle]; ok {
		for _, v := range variants {
			if containsWholeWord(haystack, v) {
				return true
			}
		}
		return false
	}

	if containsWholeWord(haystack, needle) {
		return true
	}

	// Unlisted city: retry with the stem after stripping a case ending and
	// allow declined forms of the same stem in the text.
	stem := stripDeclension(needle)
	if stem == needle || len([]rune(stem)) < 3 {
		return false
	}
	for _, word := range splitWords(haystack) {
		if stripDeclension(word) == stem {
			return true
		}
	}
	return false
}

func stripDeclension(word string) string {
	for _, suffix := range declensionSuffixes {
		if strings.HasSuffix(word, suffix) && len([]rune(word)) > len([]rune(suffix))+2 {
			return strings.TrimSuffix(word, suffix)
		}
	}
	return word
}

// containsWholeWord reports whether needle occurs in haystack bounded by
// non-letter runes on both sides, so "москва" does not match "москвариум".
func containsWholeWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	runes := []rune(haystack)
	needleRunes := []rune(needle)
	for i := 0; i+len(needleRunes) <= len(runes); i++ {
		if string(runes[i:i+len(needleRunes)]) != needle {
			continue
		}
		beforeOK := i == 0 || !isWordRune(runes[i-1])
		afterIdx := i + len(needleRunes)
		afterOK := afterIdx == len(runes) || !isWordRune(runes[afterIdx])
		if beforeOK && afterOK {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isWordRune(r) && r != '-'
	})
}
