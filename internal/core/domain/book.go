package domain

import "strings"

// Search fields accepted by Book.Matches.
const (
	SearchAll      = "all"
	SearchTitle    = "title"
	SearchAuthor   = "author"
	SearchCategory = "category"
	SearchISBN     = "isbn"
)

// Book is a catalog title. Available counts copies on the shelf and never
// leaves [0, Quantity].
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	ISBN        string `json:"isbn"`
	Quantity    int    `json:"quantity"`
	Available   int    `json:"available"`
	Publisher   string `json:"publisher"`
	Year        int    `json:"year"`
	Description string `json:"description,omitempty"`
	CoverURL    string `json:"coverUrl,omitempty"`
}

// OnLoan returns the number of copies currently borrowed.
func (b Book) OnLoan() int { return b.Quantity - b.Available }

// IsLowStock reports available <= threshold.
func (b Book) IsLowStock(threshold int) bool { return b.Available <= threshold }

// Matches reports whether q occurs (case-insensitively) in the chosen field.
// An empty query matches every book; an unknown field behaves like SearchAll.
func (b Book) Matches(q, field string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	has := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }
	switch field {
	case SearchTitle:
		return has(b.Title)
	case SearchAuthor:
		return has(b.Author)
	case SearchCategory:
		return has(b.Category)
	case SearchISBN:
		return has(b.ISBN)
	default:
		return has(b.Title) || has(b.Author) || has(b.Category) || has(b.ISBN)
	}
}

// ValidSearchField reports whether f is one of the accepted search fields.
func ValidSearchField(f string) bool {
	switch f {
	case "", SearchAll, SearchTitle, SearchAuthor, SearchCategory, SearchISBN:
		return true
	}
	return false
}
