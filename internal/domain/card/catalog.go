package card

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

const imagePrefix = "/static/images/cards/"

// Card is a known card and its image file.
type Card struct {
	Name  string
	Image string
}

// Catalog is the ordered set of known cards. Lookups are by display name.
type Catalog struct {
	cards []Card
	index map[string]int
}

// NewCatalog builds a catalog, dropping blank and repeated names.
func NewCatalog(cards []Card) Catalog {
	out := Catalog{index: make(map[string]int, len(cards))}
	for _, c := range cards {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if _, exists := out.index[c.Name]; exists {
			continue
		}
		if c.Image == "" {
			c.Image = ImagePath(c.Name)
		}
		out.index[c.Name] = len(out.cards)
		out.cards = append(out.cards, c)
	}
	return out
}

// CatalogFromFiles maps image file names such as "hog_rider.webp" to cards.
func CatalogFromFiles(files []string) Catalog {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	cards := make([]Card, 0, len(sorted))
	for _, file := range sorted {
		name := NameFromFile(file)
		if name == "" {
			continue
		}
		cards = append(cards, Card{Name: name, Image: imagePrefix + filepath.Base(file)})
	}
	return NewCatalog(cards)
}

// CatalogFromDecks collects every distinct card name across the given decks.
func CatalogFromDecks(decks ...[]string) Catalog {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, deck := range decks {
		for _, name := range deck {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)

	cards := make([]Card, 0, len(names))
	for _, name := range names {
		cards = append(cards, Card{Name: name})
	}
	return NewCatalog(cards)
}

func (c Catalog) Len() int {
	return len(c.cards)
}

func (c Catalog) Cards() []Card {
	return append([]Card(nil), c.cards...)
}

func (c Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// NameFromFile turns an image file name into a card display name:
// "mini_p.e.k.k.a.webp" becomes "Mini P.E.K.K.A".
func NameFromFile(file string) string {
	base := filepath.Base(strings.TrimSpace(file))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return titleCase(strings.ReplaceAll(base, "_", " "))
}

// ImagePath maps a card display name to its static image path.
func ImagePath(name string) string {
	path := strings.ToLower(name)
	path = strings.ReplaceAll(path, " ", "_")
	path = strings.NewReplacer("'", "", "[", "", "]", "").Replace(path)
	return imagePrefix + path + ".webp"
}

// ImagePaths maps a whole deck.
func ImagePaths(deck []string) []string {
	out := make([]string, 0, len(deck))
	for _, name := range deck {
		out = append(out, ImagePath(name))
	}
	return out
}

// titleCase upper-cases a letter that follows a non-letter and lower-cases every other letter.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && prevCased:
			b.WriteRune(unicode.ToLower(r))
		case cased:
			b.WriteRune(unicode.ToTitle(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}
