// Package option carries composable query modifiers for gorm statements so
// repositories stay free of ad-hoc ordering and paging plumbing.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// WithSortBy orders by the given clause; empty means no ordering.
func WithSortBy(clause string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if clause == "" {
			return db
		}
		return db.Order(clause)
	})
}

// WithLimit caps the result size; non-positive means no cap.
func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// WithQuerySortBy builds an order clause from request parameters, admitting
// only allow-listed columns. Unknown columns and directions yield "".
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) string {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" || !allowed[sortBy] {
		return ""
	}
	direction := strings.ToUpper(strings.TrimSpace(orderBy))
	if direction != "ASC" && direction != "DESC" {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", sortBy, direction)
}
