// Package categories manages event categories such as weddings or corporate parties.
package categories

import "time"

// Category labels quotes and contracts.
type Category struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"-"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"-" db:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ListFilter narrows a category listing.
type ListFilter struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
}
