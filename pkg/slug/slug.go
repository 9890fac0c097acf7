// Package slug turns product and category names into URL keys.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Portuguese (and the odd Spanish/French) diacritics found in catalog names.
	accents = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
		"ª", "a", "º", "o",
	)
)

// Generate lower-cases name, strips accents, and joins the remaining
// alphanumeric runs with single hyphens.
//
//	"Vitamina C 1000mg" -> "vitamina-c-1000mg"
//	"Suplementação Ômega 3" -> "suplementacao-omega-3"
func Generate(name string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(name)))
	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
