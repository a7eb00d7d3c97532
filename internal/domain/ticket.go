package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// Valid reports whether the status is one of the known values.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Label returns the human readable status name.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusNew:
		return "New"
	case TicketStatusInProgress:
		return "In progress"
	case TicketStatusResolved:
		return "Resolved"
	case TicketStatusClosed:
		return "Closed"
	case TicketStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Color returns the UI badge color for the status.
func (s TicketStatus) Color() string {
	switch s {
	case TicketStatusNew:
		return "primary"
	case TicketStatusInProgress:
		return "warning"
	case TicketStatusResolved:
		return "success"
	case TicketStatusCancelled:
		return "danger"
	}
	return "secondary"
}

// IsResolved reports whether the status counts as a finished ticket.
func (s TicketStatus) IsResolved() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists every priority in display order.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether the priority is one of the known values.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Label returns the human readable priority name.
func (p TicketPriority) Label() string {
	switch p {
	case TicketPriorityLow:
		return "Low"
	case TicketPriorityMedium:
		return "Medium"
	case TicketPriorityHigh:
		return "High"
	case TicketPriorityCritical:
		return "Critical"
	}
	return string(p)
}

// Color returns the UI badge color for the priority.
func (p TicketPriority) Color() string {
	switch p {
	case TicketPriorityLow:
		return "success"
	case TicketPriorityMedium:
		return "warning"
	case TicketPriorityHigh:
		return "danger"
	case TicketPriorityCritical:
		return "dark"
	}
	return "secondary"
}

const (
	TicketTitleMinLength       = 5
	TicketTitleMaxLength       = 200
	TicketDescriptionMinLength = 10
)

// Ticket is the unit of work tracked to resolution.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	CreatorID   int64
	AssigneeID  *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}

// IsResolved reports whether the ticket is resolved or closed.
func (t *Ticket) IsResolved() bool {
	return t.Status.IsResolved()
}

// SetStatus changes the status. ResolvedAt is stamped the first time the
// ticket enters resolved or closed and is never cleared afterwards.
func (t *Ticket) SetStatus(status TicketStatus, now time.Time) {
	t.Status = status
	if status.IsResolved() && t.ResolvedAt == nil {
		stamp := now
		t.ResolvedAt = &stamp
	}
}

// AssignTo sets the assignee and moves the ticket into progress.
func (t *Ticket) AssignTo(identityID int64, now time.Time) {
	id := identityID
	t.AssigneeID = &id
	t.SetStatus(TicketStatusInProgress, now)
}

// Unassign clears the assignee without touching the status.
func (t *Ticket) Unassign() {
	t.AssigneeID = nil
}

// IsAssignedTo reports whether identityID is the current assignee.
func (t *Ticket) IsAssignedTo(identityID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == identityID
}
