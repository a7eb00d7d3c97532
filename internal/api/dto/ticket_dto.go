package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/servisdesk/servisdesk/internal/domain"
)

// OptionalInt64 distinguishes an absent JSON field from an explicit null.
type OptionalInt64 struct {
	Set   bool
	Value *int64
}

// UnmarshalJSON records that the field was present.
func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest payload. Omitted fields stay unchanged.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	AssigneeID  OptionalInt64          `json:"assignee_id"`
}

// AssignTicketRequest payload. A null or missing assignee unassigns.
type AssignTicketRequest struct {
	AssigneeID *int64 `json:"assignee_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse represents a ticket with its display attributes.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	StatusLabel   string                `json:"status_label"`
	StatusColor   string                `json:"status_color"`
	Priority      domain.TicketPriority `json:"priority"`
	PriorityLabel string                `json:"priority_label"`
	PriorityColor string                `json:"priority_color"`
	CreatorID     int64                 `json:"created_by"`
	AssigneeID    *int64                `json:"assigned_to"`
	IsResolved    bool                  `json:"is_resolved"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
}

// TicketDetailResponse adds the visible comment thread.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	AuthorID   int64     `json:"author_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// PageResponse wraps one page of results.
type PageResponse[T any] struct {
	Items       []T  `json:"items"`
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	Total       int  `json:"total"`
	Pages       int  `json:"pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// DashboardResponse summarises the caller's tickets.
type DashboardResponse struct {
	TotalTickets      int              `json:"total_tickets"`
	NewTickets        int              `json:"new_tickets"`
	InProgressTickets int              `json:"in_progress_tickets"`
	ResolvedTickets   int              `json:"resolved_tickets"`
	ActiveUsers       *int             `json:"active_users,omitempty"`
	RecentTickets     []TicketResponse `json:"recent_tickets"`
}
