package models

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// SortOrder selects the direction transactions are returned in, by date.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortOldest
)

// ParseSortOrder maps the "sort" query parameter. Only "oldest" sorts ascending.
func ParseSortOrder(value string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(value), "oldest") {
		return SortOldest
	}
	return SortNewest
}

// FilterQuery holds the raw query parameters of the filter endpoint.
type FilterQuery struct {
	Type      string `form:"type"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Product   string `form:"product"`
	Sort      string `form:"sort"`
}

// TransactionFilter is the validated form of FilterQuery. Zero values mean "no filter".
type TransactionFilter struct {
	Type    TransactionType
	From    *time.Time
	To      *time.Time
	Product string
	Sort    SortOrder
}

// NewTransactionFilter validates a FilterQuery. Both date bounds are inclusive and
// independent; an end bound given as a bare date covers that whole day.
func NewTransactionFilter(q FilterQuery) (TransactionFilter, error) {
	filter := TransactionFilter{Sort: ParseSortOrder(q.Sort)}

	if t := strings.TrimSpace(q.Type); t != "" && !strings.EqualFold(t, "all") {
		txType, err := ParseTransactionType(t)
		if err != nil {
			return TransactionFilter{}, err
		}
		filter.Type = txType
	}

	if q.StartDate != "" {
		from, _, err := ParseDate(q.StartDate)
		if err != nil {
			return TransactionFilter{}, NewValidationError("startDate", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		filter.From = &from
	}

	if q.EndDate != "" {
		to, dateOnly, err := ParseDate(q.EndDate)
		if err != nil {
			return TransactionFilter{}, NewValidationError("endDate", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return TransactionFilter{}, NewValidationError("endDate", "must not be before startDate")
	}

	filter.Product = NormalizeProductName(q.Product)
	return filter, nil
}

// ProductPattern is the whole-word expression used to match product names, or "" when
// the filter has no product term. Matching is case-insensitive.
func (f TransactionFilter) ProductPattern() string {
	if f.Product == "" {
		return ""
	}
	return `\b(` + regexp.QuoteMeta(f.Product) + `)\b`
}

// Matcher compiles the filter into a predicate for in-memory evaluation. Storage
// drivers that can push the predicate down to the database should do so instead.
func (f TransactionFilter) Matcher() func(Transaction) bool {
	var product *regexp.Regexp
	if pattern := f.ProductPattern(); pattern != "" {
		product = regexp.MustCompile("(?i)" + pattern)
	}
	return func(tx Transaction) bool {
		if f.Type != "" && tx.Type != f.Type {
			return false
		}
		if f.From != nil && tx.Date.Before(*f.From) {
			return false
		}
		if f.To != nil && tx.Date.After(*f.To) {
			return false
		}
		return product == nil || product.MatchString(tx.Product)
	}
}

// Matches evaluates the filter against a single transaction. Use Matcher when
// scanning many.
func (f TransactionFilter) Matches(tx Transaction) bool {
	return f.Matcher()(tx)
}

// ParseDate accepts RFC 3339 timestamps, "2006-01-02T15:04" and bare dates. The second
// return value is true for bare dates.
func ParseDate(value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), true, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), false, nil
		}
	}
	_, err := time.Parse(time.RFC3339, value)
	return time.Time{}, false, err
}
