// Package repotest provides in-memory repositories with the same semantics as
// the Postgres ones, including cascades and transactional rollback, for use
// in service and handler tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/repository"
	"github.com/servisdesk/servisdesk/internal/search"
)

// Store holds every table in memory.
type Store struct {
	mu sync.Mutex

	identities map[int64]domain.Identity
	profiles   map[int64]domain.Profile
	tickets    map[int64]domain.Ticket
	comments   map[int64]domain.Comment
	seq        int64

	// Now supplies timestamps; tests may replace it to control ordering.
	Now func() time.Time

	failures map[string]error
}

// NewStore returns an empty store whose clock advances one second per call.
func NewStore() *Store {
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	s := &Store{
		identities: map[int64]domain.Identity{},
		profiles:   map[int64]domain.Profile{},
		tickets:    map[int64]domain.Ticket{},
		comments:   map[int64]domain.Comment{},
		failures:   map[string]error{},
	}
	s.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

// FailOn makes the named operation (e.g. "tickets.delete") return err until cleared.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Identities returns an IdentityRepository over the store.
func (s *Store) Identities() repository.IdentityRepository { return &identityRepo{s} }

// Profiles returns a ProfileRepository over the store.
func (s *Store) Profiles() repository.ProfileRepository { return &profileRepo{s} }

// Tickets returns a TicketRepository over the store.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Comments returns a CommentRepository over the store.
func (s *Store) Comments() repository.CommentRepository { return &commentRepo{s} }

// Transactor returns a Transactor that restores a snapshot when fn fails.
func (s *Store) Transactor() repository.Transactor { return &transactor{s} }

// ProfileCount reports how many profiles belong to identityID.
func (s *Store) ProfileCount(identityID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.profiles {
		if p.IdentityID == identityID {
			n++
		}
	}
	return n
}

// CommentCount reports how many comments belong to ticketID.
func (s *Store) CommentCount(ticketID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.comments {
		if c.TicketID == ticketID {
			n++
		}
	}
	return n
}

// TicketExists reports whether a ticket row is present.
func (s *Store) TicketExists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tickets[id]
	return ok
}

type snapshot struct {
	identities map[int64]domain.Identity
	profiles   map[int64]domain.Profile
	tickets    map[int64]domain.Ticket
	comments   map[int64]domain.Comment
	seq        int64
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		identities: copyMap(s.identities),
		profiles:   copyMap(s.profiles),
		tickets:    copyMap(s.tickets),
		comments:   copyMap(s.comments),
		seq:        s.seq,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities = snap.identities
	s.profiles = snap.profiles
	s.tickets = snap.tickets
	s.comments = snap.comments
	s.seq = snap.seq
}

type txKey struct{}

type transactor struct{ s *Store }

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

// ---- identities ----

type identityRepo struct{ s *Store }

func (r *identityRepo) Create(_ context.Context, identity *domain.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("identities.create"); err != nil {
		return err
	}
	for _, existing := range r.s.identities {
		if existing.Username == identity.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "identities_username_key"}
		}
	}
	identity.ID = r.s.nextID()
	identity.DateJoined = r.s.Now()
	r.s.identities[identity.ID] = *identity
	return nil
}

func (r *identityRepo) Update(_ context.Context, identity *domain.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("identities.update"); err != nil {
		return err
	}
	current, ok := r.s.identities[identity.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, existing := range r.s.identities {
		if existing.ID != identity.ID && existing.Username == identity.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "identities_username_key"}
		}
	}
	updated := *identity
	updated.DateJoined = current.DateJoined
	updated.LastLogin = current.LastLogin
	r.s.identities[identity.ID] = updated
	return nil
}

func (r *identityRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("identities.delete"); err != nil {
		return err
	}
	if _, ok := r.s.identities[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.identities, id)
	for pid, p := range r.s.profiles {
		if p.IdentityID == id {
			delete(r.s.profiles, pid)
		}
	}
	for tid, t := range r.s.tickets {
		switch {
		case t.CreatorID == id:
			delete(r.s.tickets, tid)
			for cid, c := range r.s.comments {
				if c.TicketID == tid {
					delete(r.s.comments, cid)
				}
			}
		case t.AssigneeID != nil && *t.AssigneeID == id:
			t.AssigneeID = nil
			r.s.tickets[tid] = t
		}
	}
	for cid, c := range r.s.comments {
		if c.AuthorID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

func (r *identityRepo) GetByID(_ context.Context, id int64) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &identity, nil
}

func (r *identityRepo) GetByUsername(_ context.Context, username string) (*domain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, identity := range r.s.identities {
		if identity.Username == username {
			found := identity
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *identityRepo) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stamp := at
	identity.LastLogin = &stamp
	r.s.identities[id] = identity
	return nil
}

func (r *identityRepo) CountActive(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, identity := range r.s.identities {
		if identity.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *identityRepo) matching(criteria search.IdentityCriteria) []domain.IdentityWithProfile {
	var result []domain.IdentityWithProfile
	for _, identity := range r.s.identities {
		var profile domain.Profile
		found := false
		for _, p := range r.s.profiles {
			if p.IdentityID == identity.ID {
				profile, found = p, true
				break
			}
		}
		if !found {
			continue
		}
		if term := strings.TrimSpace(criteria.Term); term != "" {
			if !containsFold(identity.Username, term) && !containsFold(identity.FirstName, term) &&
				!containsFold(identity.LastName, term) && !containsFold(identity.Email, term) &&
				!containsFold(profile.Department, term) {
				continue
			}
		}
		if dept := strings.TrimSpace(criteria.Department); dept != "" && !containsFold(profile.Department, dept) {
			continue
		}
		if criteria.Active != nil && identity.IsActive != *criteria.Active {
			continue
		}
		result = append(result, domain.IdentityWithProfile{Identity: identity, Profile: profile})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Identity, result[j].Identity
		if !a.DateJoined.Equal(b.DateJoined) {
			return a.DateJoined.After(b.DateJoined)
		}
		return a.ID > b.ID
	})
	return result
}

func (r *identityRepo) Count(_ context.Context, criteria search.IdentityCriteria) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.matching(criteria)), nil
}

func (r *identityRepo) Search(_ context.Context, criteria search.IdentityCriteria, limit, offset int) ([]domain.IdentityWithProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return window(r.matching(criteria), limit, offset), nil
}

// ---- profiles ----

type profileRepo struct{ s *Store }

func (r *profileRepo) Create(_ context.Context, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("profiles.create"); err != nil {
		return err
	}
	if _, ok := r.s.identities[profile.IdentityID]; !ok {
		return fmt.Errorf("profiles: identity %d does not exist", profile.IdentityID)
	}
	for _, p := range r.s.profiles {
		if p.IdentityID == profile.IdentityID {
			return &pgconn.PgError{Code: "23505", ConstraintName: "profiles_identity_id_key"}
		}
	}
	now := r.s.Now()
	profile.ID = r.s.nextID()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	r.s.profiles[profile.ID] = *profile
	return nil
}

func (r *profileRepo) Update(_ context.Context, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("profiles.update"); err != nil {
		return err
	}
	for id, p := range r.s.profiles {
		if p.IdentityID == profile.IdentityID {
			p.Phone = profile.Phone
			p.Department = profile.Department
			p.Position = profile.Position
			p.IsActive = profile.IsActive
			p.UpdatedAt = r.s.Now()
			r.s.profiles[id] = p
			profile.UpdatedAt = p.UpdatedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *profileRepo) GetByIdentity(_ context.Context, identityID int64) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if p.IdentityID == identityID {
			found := p
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// ---- tickets ----

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tickets.create"); err != nil {
		return err
	}
	now := r.s.Now()
	ticket.ID = r.s.nextID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tickets.update"); err != nil {
		return err
	}
	current, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := *ticket
	updated.CreatorID = current.CreatorID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = r.s.Now()
	r.s.tickets[ticket.ID] = updated
	ticket.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *ticketRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tickets.delete"); err != nil {
		return err
	}
	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tickets, id)
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *ticketRepo) matching(filter repository.TicketFilter) []domain.Ticket {
	c := filter.Criteria
	from, until := c.CreatedRange()
	var result []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.OwnerID != nil && t.CreatorID != *filter.OwnerID {
			continue
		}
		if term := strings.TrimSpace(c.Term); term != "" && !containsFold(t.Title, term) && !containsFold(t.Description, term) {
			continue
		}
		if c.Status != nil && t.Status != *c.Status {
			continue
		}
		if c.Priority != nil && t.Priority != *c.Priority {
			continue
		}
		if c.CreatorID != nil && t.CreatorID != *c.CreatorID {
			continue
		}
		if from != nil && t.CreatedAt.Before(*from) {
			continue
		}
		if until != nil && !t.CreatedAt.Before(*until) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result
}

func (r *ticketRepo) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.matching(filter)), nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter, limit, offset int) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return window(r.matching(filter), limit, offset), nil
}

func (r *ticketRepo) CountByStatus(_ context.Context, ownerID *int64) (map[domain.TicketStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[domain.TicketStatus]int{}
	for _, t := range r.matching(repository.TicketFilter{OwnerID: ownerID}) {
		counts[t.Status]++
	}
	return counts, nil
}

// SetCreatedAt backdates a ticket for date filter tests.
func (s *Store) SetCreatedAt(ticketID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tickets[ticketID]
	t.CreatedAt = at
	s.tickets[ticketID] = t
}

// ---- comments ----

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("comments.create"); err != nil {
		return err
	}
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return fmt.Errorf("comments: ticket %d does not exist", comment.TicketID)
	}
	comment.ID = r.s.nextID()
	comment.CreatedAt = r.s.Now()
	r.s.comments[comment.ID] = *comment
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Comment
	for _, c := range r.s.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *commentRepo) DeleteByTicket(_ context.Context, ticketID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("comments.delete"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.s.comments {
		if c.TicketID == ticketID {
			delete(r.s.comments, id)
			n++
		}
	}
	return n, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
