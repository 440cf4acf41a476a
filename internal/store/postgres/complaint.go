package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/complaintdesk/internal/domain"
)

const complaintColumns = `id, tenant_id, reference, title, description, category, priority, status,
		        submitted_by, logged_by, assigned_to, resolution_notes,
		        created_at, updated_at, resolved_at, closed_at, version`

type ComplaintRepo struct {
	db querier
}

func NewComplaintRepo(db querier) *ComplaintRepo {
	return &ComplaintRepo{db: db}
}

func (r *ComplaintRepo) Create(ctx context.Context, c *domain.Complaint) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO complaints (id, tenant_id, reference, title, description, category, priority, status,
		                         submitted_by, logged_by, assigned_to, resolution_notes,
		                         created_at, updated_at, resolved_at, closed_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.TenantID, c.Reference, c.Title, c.Description, c.Category, c.Priority, c.Status,
		c.SubmittedBy, c.LoggedBy, c.AssignedTo, c.ResolutionNotes,
		c.CreatedAt, c.UpdatedAt, c.ResolvedAt, c.ClosedAt, c.Version,
	)
	if isUniqueViolation(err, "complaints_reference_key") {
		return fmt.Errorf("complaintRepo.Create: %s: %w", c.Reference, domain.ErrDuplicateReference)
	}
	if err != nil {
		return fmt.Errorf("complaintRepo.Create: %w", err)
	}

	return nil
}

func (r *ComplaintRepo) GetByReference(ctx context.Context, tenantID uuid.UUID, ref string) (*domain.Complaint, error) {
	return r.getOne(ctx, "complaintRepo.GetByReference",
		`SELECT `+complaintColumns+`
		 FROM complaints WHERE tenant_id = $1 AND reference = $2`,
		tenantID, ref)
}

func (r *ComplaintRepo) GetByReferenceForUpdate(ctx context.Context, tenantID uuid.UUID, ref string) (*domain.Complaint, error) {
	return r.getOne(ctx, "complaintRepo.GetByReferenceForUpdate",
		`SELECT `+complaintColumns+`
		 FROM complaints WHERE tenant_id = $1 AND reference = $2
		 FOR UPDATE`,
		tenantID, ref)
}

func (r *ComplaintRepo) getOne(ctx context.Context, caller, query string, tenantID uuid.UUID, ref string) (*domain.Complaint, error) {
	rows, err := r.db.Query(ctx, query, tenantID, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}
	defer rows.Close()

	c, err := pgx.CollectExactlyOneRow(rows, scanComplaint)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caller, err)
	}

	return c, nil
}

// Update writes the mutable columns when the stored version still matches
// c.Version. tenant_id and reference are never written.
func (r *ComplaintRepo) Update(ctx context.Context, c *domain.Complaint) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE complaints SET title = $1, description = $2, category = $3, priority = $4, status = $5,
		        submitted_by = $6, logged_by = $7, assigned_to = $8, resolution_notes = $9,
		        updated_at = $10, resolved_at = $11, closed_at = $12, version = version + 1
		 WHERE tenant_id = $13 AND id = $14 AND version = $15`,
		c.Title, c.Description, c.Category, c.Priority, c.Status,
		c.SubmittedBy, c.LoggedBy, c.AssignedTo, c.ResolutionNotes,
		c.UpdatedAt, c.ResolvedAt, c.ClosedAt,
		c.TenantID, c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("complaintRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complaintRepo.Update: %s at version %d: %w", c.Reference, c.Version, domain.ErrConflict)
	}

	c.Version++
	return nil
}

func (r *ComplaintRepo) List(ctx context.Context, tenantID uuid.UUID, f domain.ComplaintFilter, p domain.Page) ([]*domain.Complaint, int, error) {
	where, args := buildFilter(tenantID, f)

	var total int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM complaints WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("complaintRepo.List: count: %w", err)
	}

	n := len(args)
	args = append(args, p.Limit, p.Offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+complaintColumns+`
		 FROM complaints WHERE `+where+`
		 ORDER BY created_at DESC, id
		 LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("complaintRepo.List: %w", err)
	}
	defer rows.Close()

	items, err := pgx.CollectRows(rows, scanComplaint)
	if err != nil {
		return nil, 0, fmt.Errorf("complaintRepo.List: scan: %w", err)
	}

	return items, total, nil
}

func (r *ComplaintRepo) CountByStatus(ctx context.Context, tenantID uuid.UUID, f domain.ComplaintFilter) (map[domain.ComplaintStatus]int, error) {
	where, args := buildFilter(tenantID, f)

	rows, err := r.db.Query(ctx,
		`SELECT status, count(*) FROM complaints WHERE `+where+` GROUP BY status`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("complaintRepo.CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ComplaintStatus]int)
	for rows.Next() {
		var (
			status domain.ComplaintStatus
			n      int
		)
		err = rows.Scan(&status, &n)
		if err != nil {
			return nil, fmt.Errorf("complaintRepo.CountByStatus: scan: %w", err)
		}
		counts[status] = n
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("complaintRepo.CountByStatus: rows: %w", err)
	}

	return counts, nil
}

// buildFilter renders f as a WHERE clause with positional arguments. The
// tenant predicate is always first.
func buildFilter(tenantID uuid.UUID, f domain.ComplaintFilter) (string, []any) {
	clauses := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Priority != "" {
		add("priority = ?", f.Priority)
	}
	if f.SubmittedBy != nil {
		add("submitted_by = ?", *f.SubmittedBy)
	}
	if f.AssignedTo != nil {
		add("assigned_to = ?", *f.AssignedTo)
	}
	if f.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	}
	if f.Search != "" {
		add(`(reference ILIKE ? ESCAPE '\' OR title ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')`,
			"%"+escapeLike(f.Search)+"%")
	}

	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanComplaint(row pgx.CollectableRow) (*domain.Complaint, error) {
	var c domain.Complaint

	err := row.Scan(
		&c.ID, &c.TenantID, &c.Reference, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status,
		&c.SubmittedBy, &c.LoggedBy, &c.AssignedTo, &c.ResolutionNotes,
		&c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt, &c.ClosedAt, &c.Version,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}
