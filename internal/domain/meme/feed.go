package meme

import (
	"strings"

	"memebid-service/internal/domain/shared"
)

// SortField is a column the meme feed can be ordered by
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpvotes   SortField = "upvotes"
	SortDownvotes SortField = "downvotes"
	SortTitle     SortField = "title"
)

// ParseSortField accepts an empty value as created_at
func ParseSortField(s string) (SortField, bool) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortCreatedAt, true
	case SortCreatedAt, SortUpvotes, SortDownvotes, SortTitle:
		return f, true
	default:
		return "", false
	}
}

// ParseOrder reports whether order asks for ascending results. Empty means descending.
func ParseOrder(s string) (ascending bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return false, true
	case "asc":
		return true, true
	default:
		return false, false
	}
}

// FeedQuery selects one page of the public meme feed
type FeedQuery struct {
	Page      shared.Page
	Sort      SortField
	Ascending bool
}

// Less orders a before b for the query; ties fall back to the id so pages are stable
func (q FeedQuery) Less(a, b *Meme) bool {
	var cmp int
	switch q.Sort {
	case SortUpvotes:
		cmp = a.Upvotes - b.Upvotes
	case SortDownvotes:
		cmp = a.Downvotes - b.Downvotes
	case SortTitle:
		cmp = strings.Compare(a.Title, b.Title)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if cmp == 0 {
		return a.ID.String() < b.ID.String()
	}
	if q.Ascending {
		return cmp < 0
	}
	return cmp > 0
}
