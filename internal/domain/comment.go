package domain

import "time"

// Comment is a note in a ticket thread. Internal comments are staff-only.
type Comment struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
