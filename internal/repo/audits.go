package repo

import (
	"context"
	"fmt"
)

const auditColumns = `id, csp_id, auditor_id, scheduled_date, completed_date, status, findings, images, location_verified, face_verified`

// auditOrder sorts by completion when known, else by schedule.
const auditOrder = ` ORDER BY COALESCE(completed_date, scheduled_date) DESC, id DESC`

func scanAudit(row rowScanner) (*Audit, error) {
	var (
		a         Audit
		scheduled dbTime
		completed dbTime
		findings  []byte
		images    []byte
	)
	if err := row.Scan(&a.ID, &a.CSPID, &a.AuditorID, &scheduled, &completed, &a.Status, &findings, &images, &a.LocationVerified, &a.FaceVerified); err != nil {
		return nil, err
	}
	a.ScheduledDate = scheduled.Time
	a.CompletedDate = completed.ptr()
	a.Findings = rawJSON(findings)
	a.Images = rawJSON(images)
	return &a, nil
}

func (s *SQLStore) CreateAudit(ctx context.Context, in NewAudit) (*Audit, error) {
	const q = `
INSERT INTO audits (csp_id, auditor_id, scheduled_date, status, location_verified, face_verified)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + auditColumns
	rec := in.record()
	a, err := getRow(ctx, s, scanAudit, q, rec.CSPID, rec.AuditorID, rec.ScheduledDate, rec.Status, rec.LocationVerified, rec.FaceVerified)
	if err != nil {
		return nil, fmt.Errorf("create audit: %w", err)
	}
	return a, nil
}

func (s *SQLStore) GetAudit(ctx context.Context, id int64) (*Audit, error) {
	a, err := getRow(ctx, s, scanAudit, `SELECT `+auditColumns+` FROM audits WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get audit: %w", err)
	}
	return a, nil
}

func (s *SQLStore) ListAuditsByCSP(ctx context.Context, cspID int64, limit int) ([]Audit, error) {
	list, err := listRows(ctx, s, scanAudit, `SELECT `+auditColumns+` FROM audits WHERE csp_id = ?`+auditOrder+limitClause(limit), cspID)
	if err != nil {
		return nil, fmt.Errorf("list audits by csp: %w", err)
	}
	return list, nil
}

func (s *SQLStore) ListAuditsByAuditor(ctx context.Context, auditorID int64, limit int) ([]Audit, error) {
	list, err := listRows(ctx, s, scanAudit, `SELECT `+auditColumns+` FROM audits WHERE auditor_id = ?`+auditOrder+limitClause(limit), auditorID)
	if err != nil {
		return nil, fmt.Errorf("list audits by auditor: %w", err)
	}
	return list, nil
}

func (s *SQLStore) UpdateAudit(ctx context.Context, id int64, patch AuditPatch) (*Audit, error) {
	a, err := updateRow(ctx, s, scanAudit, "audits", auditColumns, id, patch.assignments())
	if err != nil {
		return nil, fmt.Errorf("update audit: %w", err)
	}
	return a, nil
}
