package news

import "time"

// CategorySearch is the pseudo-category used when rendering search results.
// It is never sent to NewsAPI; it only selects the "Arama Sonuçları" heading.
const CategorySearch = "search"

// Article is a single news story.
type Article struct {
	// Title is the headline.
	Title string

	// Description is a short summary, possibly empty.
	Description string

	// Source is the publisher name (e.g., "NTV").
	Source string

	// URL links to the full story.
	URL string

	// PublishedAt is the publication time.
	PublishedAt time.Time
}

// turkishCategories maps the spoken Turkish category words onto NewsAPI
// category names.
var turkishCategories = map[string]string{
	"iş":        "business",
	"eğlence":   "entertainment",
	"sağlık":    "health",
	"bilim":     "science",
	"spor":      "sports",
	"teknoloji": "technology",
}

// displayNames maps NewsAPI category names back to the Turkish heading shown
// to the user.
var displayNames = map[string]string{
	"business":      "İş",
	"entertainment": "Eğlence",
	"health":        "Sağlık",
	"science":       "Bilim",
	"sports":        "Spor",
	"technology":    "Teknoloji",
	CategorySearch:  "Arama Sonuçları",
}

// CategoryFromTurkish resolves a spoken Turkish category word to a NewsAPI
// category name. The second result reports whether the word is a known
// category.
func CategoryFromTurkish(word string) (string, bool) {
	c, ok := turkishCategories[word]
	return c, ok
}

// DisplayName returns the Turkish heading for a NewsAPI category. The empty
// category (general headlines) displays as "Genel".
func DisplayName(category string) string {
	if category == "" {
		return "Genel"
	}
	if name, ok := displayNames[category]; ok {
		return name
	}
	return "Genel"
}
