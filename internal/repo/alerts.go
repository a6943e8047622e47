package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const alertColumns = `id, alert_code, csp_id, description, occurred_at, severity, status, resolved_by, resolved_at`

func scanAlert(row rowScanner) (*Alert, error) {
	var (
		a          Alert
		cspID      sql.NullInt64
		occurredAt dbTime
		resolvedBy sql.NullInt64
		resolvedAt dbTime
	)
	if err := row.Scan(&a.ID, &a.Code, &cspID, &a.Description, &occurredAt, &a.Severity, &a.Status, &resolvedBy, &resolvedAt); err != nil {
		return nil, err
	}
	a.CSPID = nullInt64(cspID)
	a.Timestamp = occurredAt.Time
	a.ResolvedBy = nullInt64(resolvedBy)
	a.ResolvedAt = resolvedAt.ptr()
	return &a, nil
}

func (s *SQLStore) CreateAlert(ctx context.Context, in NewAlert) (*Alert, error) {
	const q = `
INSERT INTO alerts (alert_code, csp_id, description, occurred_at, severity, status)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + alertColumns
	rec := in.record(s.opts.clock())
	a, err := getRow(ctx, s, scanAlert, q, rec.Code, int64Param(rec.CSPID), rec.Description, rec.Timestamp, rec.Severity, rec.Status)
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return a, nil
}

func (s *SQLStore) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	a, err := getRow(ctx, s, scanAlert, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *SQLStore) ListAlertsByCSP(ctx context.Context, cspID int64, limit int) ([]Alert, error) {
	return s.ListAlerts(ctx, AlertFilter{CSPID: &cspID}, limit)
}

func (s *SQLStore) ListAlerts(ctx context.Context, filter AlertFilter, limit int) ([]Alert, error) {
	var w where
	if filter.Status != nil {
		w.eq("status", *filter.Status)
	}
	if filter.Severity != nil {
		w.eq("severity", *filter.Severity)
	}
	if filter.CSPID != nil {
		w.eq("csp_id", *filter.CSPID)
	}
	q := `SELECT ` + alertColumns + ` FROM alerts` + w.String() + ` ORDER BY occurred_at DESC, id DESC` + limitClause(limit)
	list, err := listRows(ctx, s, scanAlert, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return list, nil
}

func (s *SQLStore) UpdateAlert(ctx context.Context, id int64, patch AlertPatch) (*Alert, error) {
	a, err := updateRow(ctx, s, scanAlert, "alerts", alertColumns, id, patch.assignments())
	if err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	return a, nil
}
