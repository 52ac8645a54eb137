package catalog

import (
	"database/sql"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Title struct {
	TitleID  uint64        `db:"title_id"`
	Name     string        `db:"name"`
	AuthorID sql.NullInt64 `db:"author_id"`
	Quantity int           `db:"quantity"`
}

type Category struct {
	CategoryID uint64 `db:"category_id" json:"category_id"`
	Name       string `db:"name" json:"name"`
	TitleCount int    `db:"title_count" json:"title_count"`
}

// TitleRow is one line of the search projection.
type TitleRow struct {
	TitleID           uint64 `db:"title_id"`
	Name              string `db:"name"`
	Author            string `db:"author"`
	TotalQuantity     int    `db:"total_quantity"`
	AvailableQuantity int    `db:"available_quantity"`
}

type titleCategory struct {
	TitleID uint64 `db:"title_id"`
	Name    string `db:"name"`
}

// NormalizeName trims and NFC-normalizes a title, author or category name.
// Matching after that is exact and case-sensitive.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
