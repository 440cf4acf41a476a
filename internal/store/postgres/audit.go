package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// AuditRepo only appends and reads. Updates and deletes are also rejected by
// a trigger on audit_log.
type AuditRepo struct {
	db querier
}

func NewAuditRepo(db querier) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditEntry) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO audit_log (id, tenant_id, complaint_id, actor_id, action, details, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING seq`,
		e.ID, e.TenantID, e.ComplaintID, e.ActorID,
		e.Action, e.Details, e.OldValue, e.NewValue, e.CreatedAt,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListByComplaint(ctx context.Context, tenantID, complaintID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, seq, tenant_id, complaint_id, actor_id, action, details, old_value, new_value, created_at
		 FROM audit_log WHERE tenant_id = $1 AND complaint_id = $2
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $3 OFFSET $4`,
		tenantID, complaintID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByComplaint: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditEntry, error) {
		var e domain.AuditEntry
		err := row.Scan(&e.ID, &e.Seq, &e.TenantID, &e.ComplaintID, &e.ActorID,
			&e.Action, &e.Details, &e.OldValue, &e.NewValue, &e.CreatedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByComplaint: scan: %w", err)
	}

	return entries, nil
}
