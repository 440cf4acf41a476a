package complaint_test

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// memStore is an in-memory Store with snapshot transactions: InTx works on a
// copy of the state and swaps it in only when fn succeeds.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// failAudit, when set, is returned by every audit append.
	failAudit error
	// racingWriter, when set, commits a competing write to the complaint
	// between the transaction's read and its Update, so the version check
	// sees a stale version.
	racingWriter bool
	// dupRefs makes the next n complaint inserts fail as duplicates.
	dupRefs int
}

type memState struct {
	tenants    map[uuid.UUID]*domain.Tenant
	identities map[uuid.UUID]*domain.Identity
	complaints map[uuid.UUID]*domain.Complaint
	audit      []*domain.AuditEntry
	seq        int64
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		tenants:    map[uuid.UUID]*domain.Tenant{},
		identities: map[uuid.UUID]*domain.Identity{},
		complaints: map[uuid.UUID]*domain.Complaint{},
	}}
}

func (s *memState) clone() *memState {
	out := &memState{
		tenants:    make(map[uuid.UUID]*domain.Tenant, len(s.tenants)),
		identities: make(map[uuid.UUID]*domain.Identity, len(s.identities)),
		complaints: make(map[uuid.UUID]*domain.Complaint, len(s.complaints)),
		audit:      slices.Clone(s.audit),
		seq:        s.seq,
	}
	for k, v := range s.tenants {
		t := *v
		out.tenants[k] = &t
	}
	for k, v := range s.identities {
		id := *v
		out.identities[k] = &id
	}
	for k, v := range s.complaints {
		out.complaints[k] = copyComplaint(v)
	}
	return out
}

func copyComplaint(c *domain.Complaint) *domain.Complaint {
	cp := *c
	return &cp
}

func (s *memStore) InTx(_ context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(memTx{repo{store: s, tx: work}}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *memStore) Tenants() domain.TenantRepository { return tenantRepo{repo{store: s}} }
func (s *memStore) Identities() domain.IdentityRepository { return identityRepo{repo{store: s}} }
func (s *memStore) Complaints() domain.ComplaintRepository { return complaintRepo{repo{store: s}} }
func (s *memStore) Audit() domain.AuditRepository { return auditRepo{repo{store: s}} }

// auditCount returns the number of committed audit entries.
func (s *memStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.audit)
}

func (s *memStore) complaintCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.complaints)
}

type memTx struct{ r repo }

func (t memTx) Complaints() domain.ComplaintRepository { return complaintRepo{t.r} }
func (t memTx) Audit() domain.AuditRepository { return auditRepo{t.r} }
func (t memTx) Identities() domain.IdentityRepository { return identityRepo{t.r} }

// repo reads the transaction snapshot when tx is set, otherwise the committed
// state under the store lock.
type repo struct {
	store *memStore
	tx    *memState
}

func (r repo) state() (*memState, func()) {
	if r.tx != nil {
		return r.tx, func() {}
	}
	r.store.mu.Lock()
	return r.store.state, r.store.mu.Unlock
}

type tenantRepo struct{ repo }

func (r tenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	st, done := r.state()
	defer done()
	for _, existing := range st.tenants {
		if existing.Slug == t.Slug {
			return domain.ErrConflict
		}
	}
	cp := *t
	st.tenants[t.ID] = &cp
	return nil
}

func (r tenantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	st, done := r.state()
	defer done()
	t, ok := st.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r tenantRepo) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	st, done := r.state()
	defer done()
	for _, t := range st.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r tenantRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	st, done := r.state()
	defer done()
	t, ok := st.tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Active = active
	return nil
}

func (r tenantRepo) List(_ context.Context) ([]*domain.Tenant, error) {
	st, done := r.state()
	defer done()
	out := make([]*domain.Tenant, 0, len(st.tenants))
	for _, t := range st.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

type identityRepo struct{ repo }

func (r identityRepo) Create(_ context.Context, id *domain.Identity) error {
	st, done := r.state()
	defer done()
	if _, ok := st.identities[id.UserID]; ok {
		return domain.ErrConflict
	}
	cp := *id
	st.identities[id.UserID] = &cp
	return nil
}

func (r identityRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Identity, error) {
	st, done := r.state()
	defer done()
	id, ok := st.identities[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (r identityRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, roles ...domain.Role) ([]*domain.Identity, error) {
	st, done := r.state()
	defer done()
	var out []*domain.Identity
	for _, id := range st.identities {
		if id.TenantID != tenantID {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, id.Role) {
			continue
		}
		cp := *id
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *domain.Identity) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

type complaintRepo struct{ repo }

func (r complaintRepo) Create(_ context.Context, c *domain.Complaint) error {
	st, done := r.state()
	defer done()
	if r.store.dupRefs > 0 {
		r.store.dupRefs--
		return domain.ErrDuplicateReference
	}
	for _, existing := range st.complaints {
		if existing.Reference == c.Reference {
			return domain.ErrDuplicateReference
		}
	}
	st.complaints[c.ID] = copyComplaint(c)
	return nil
}

func (r complaintRepo) find(st *memState, tenantID uuid.UUID, ref string) (*domain.Complaint, error) {
	for _, c := range st.complaints {
		if c.TenantID == tenantID && c.Reference == ref {
			return copyComplaint(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r complaintRepo) GetByReference(_ context.Context, tenantID uuid.UUID, ref string) (*domain.Complaint, error) {
	st, done := r.state()
	defer done()
	return r.find(st, tenantID, ref)
}

func (r complaintRepo) GetByReferenceForUpdate(_ context.Context, tenantID uuid.UUID, ref string) (*domain.Complaint, error) {
	st, done := r.state()
	defer done()
	return r.find(st, tenantID, ref)
}

func (r complaintRepo) Update(_ context.Context, c *domain.Complaint) error {
	st, done := r.state()
	defer done()
	stored, ok := st.complaints[c.ID]
	if !ok || stored.TenantID != c.TenantID {
		return domain.ErrNotFound
	}
	if r.store.racingWriter {
		stored.Version++
	}
	if stored.Version != c.Version {
		return domain.ErrConflict
	}
	c.Version++
	st.complaints[c.ID] = copyComplaint(c)
	return nil
}

func matches(c *domain.Complaint, f domain.ComplaintFilter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Priority != "" && c.Priority != f.Priority {
		return false
	}
	if f.SubmittedBy != nil && !c.IsSubmittedBy(*f.SubmittedBy) {
		return false
	}
	if f.AssignedTo != nil && (c.AssignedTo == nil || *c.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.Unassigned && c.AssignedTo != nil {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hay := strings.ToLower(c.Reference + "\n" + c.Title + "\n" + c.Description)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func (r complaintRepo) List(_ context.Context, tenantID uuid.UUID, f domain.ComplaintFilter, p domain.Page) ([]*domain.Complaint, int, error) {
	st, done := r.state()
	defer done()
	var all []*domain.Complaint
	for _, c := range st.complaints {
		if c.TenantID == tenantID && matches(c, f) {
			all = append(all, copyComplaint(c))
		}
	}
	slices.SortFunc(all, func(a, b *domain.Complaint) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := len(all)
	if p.Offset >= total {
		return nil, total, nil
	}
	end := min(p.Offset+p.Limit, total)
	return all[p.Offset:end], total, nil
}

func (r complaintRepo) CountByStatus(_ context.Context, tenantID uuid.UUID, f domain.ComplaintFilter) (map[domain.ComplaintStatus]int, error) {
	st, done := r.state()
	defer done()
	out := map[domain.ComplaintStatus]int{}
	for _, c := range st.complaints {
		if c.TenantID == tenantID && matches(c, f) {
			out[c.Status]++
		}
	}
	return out, nil
}

type auditRepo struct{ repo }

func (r auditRepo) Append(_ context.Context, e *domain.AuditEntry) error {
	st, done := r.state()
	defer done()
	if r.store.failAudit != nil {
		return r.store.failAudit
	}
	st.seq++
	e.Seq = st.seq
	cp := *e
	st.audit = append(st.audit, &cp)
	return nil
}

func (r auditRepo) ListByComplaint(_ context.Context, tenantID, complaintID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	st, done := r.state()
	defer done()
	var out []*domain.AuditEntry
	for _, e := range st.audit {
		if e.TenantID == tenantID && e.ComplaintID == complaintID {
			cp := *e
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *domain.AuditEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.Seq - a.Seq)
	})
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}
