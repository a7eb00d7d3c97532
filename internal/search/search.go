// Package search describes the ticket and identity filters and the page
// arithmetic shared by list endpoints. SQL translation lives in the
// repository package.
package search

import (
	"strings"
	"time"

	"github.com/servisdesk/servisdesk/internal/domain"
)

const (
	TicketPageSize   = 15
	IdentityPageSize = 20
)

// DateLayout is the accepted format for created-at bounds.
const DateLayout = "2006-01-02"

// TicketCriteria holds optional ticket filters; set fields are AND-combined.
type TicketCriteria struct {
	Term        string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	CreatorID   *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CreatedRange converts the inclusive date bounds into a half-open
// timestamp range [from, until) in the dates' own location.
func (c TicketCriteria) CreatedRange() (from, until *time.Time) {
	if c.CreatedFrom != nil {
		start := startOfDay(*c.CreatedFrom)
		from = &start
	}
	if c.CreatedTo != nil {
		end := startOfDay(*c.CreatedTo).AddDate(0, 0, 1)
		until = &end
	}
	return from, until
}

// IdentityCriteria holds optional identity filters.
type IdentityCriteria struct {
	Term       string
	Department string
	Active     *bool
}

// LikePattern builds a substring pattern for ILIKE with wildcards escaped.
func LikePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}

// ParseDate parses a YYYY-MM-DD bound in loc. Empty input yields nil.
func ParseDate(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
