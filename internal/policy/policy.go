// Package policy holds the access rules for tickets, comments and identity
// management. Every function is pure; callers gate each mutation through the
// matching predicate before touching the store.
package policy

import "github.com/servisdesk/servisdesk/internal/domain"

// IsAdministrator reports whether the identity has staff or superuser rights.
func IsAdministrator(identity *domain.Identity) bool {
	if identity == nil || !identity.IsActive {
		return false
	}
	return identity.IsStaff || identity.IsSuperuser
}

// CanViewTicket allows administrators and the ticket creator.
func CanViewTicket(identity *domain.Identity, ticket *domain.Ticket) bool {
	if identity == nil || ticket == nil {
		return false
	}
	return IsAdministrator(identity) || ticket.CreatorID == identity.ID
}

// CanViewComment hides internal comments from everyone but administrators,
// including the creator of the ticket.
func CanViewComment(identity *domain.Identity, comment *domain.Comment) bool {
	if identity == nil || comment == nil {
		return false
	}
	return IsAdministrator(identity) || !comment.IsInternal
}

// CanEditTicket allows administrators, the creator and the assignee.
func CanEditTicket(identity *domain.Identity, ticket *domain.Ticket) bool {
	if identity == nil || ticket == nil {
		return false
	}
	if IsAdministrator(identity) || ticket.CreatorID == identity.ID {
		return true
	}
	return ticket.IsAssignedTo(identity.ID)
}

func CanAssign(identity *domain.Identity) bool {
	return IsAdministrator(identity)
}

func CanChangeStatus(identity *domain.Identity) bool {
	return IsAdministrator(identity)
}

func CanDeleteTicket(identity *domain.Identity) bool {
	return IsAdministrator(identity)
}

func CanManageIdentities(identity *domain.Identity) bool {
	return IsAdministrator(identity)
}

// CanPostInternalComment restricts internal notes to administrators.
func CanPostInternalComment(identity *domain.Identity) bool {
	return IsAdministrator(identity)
}

// CanDeactivateIdentity forbids administrators from locking themselves out.
func CanDeactivateIdentity(actor *domain.Identity, targetID int64) bool {
	return CanManageIdentities(actor) && actor.ID != targetID
}

// CanDeleteIdentity follows the same self-protection rule as deactivation.
func CanDeleteIdentity(actor *domain.Identity, targetID int64) bool {
	return CanManageIdentities(actor) && actor.ID != targetID
}

// VisibleComments filters a thread down to what identity may read.
func VisibleComments(identity *domain.Identity, comments []domain.Comment) []domain.Comment {
	visible := make([]domain.Comment, 0, len(comments))
	for i := range comments {
		if CanViewComment(identity, &comments[i]) {
			visible = append(visible, comments[i])
		}
	}
	return visible
}
