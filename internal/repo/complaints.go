package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const complaintColumns = `id, customer_name, contact, csp_id, description, transaction_code, status, submitted_at, resolved_at, resolved_by`

func scanComplaint(row rowScanner) (*Complaint, error) {
	var (
		c           Complaint
		contact     sql.NullString
		cspID       sql.NullInt64
		txnCode     sql.NullString
		submittedAt dbTime
		resolvedAt  dbTime
		resolvedBy  sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.CustomerName, &contact, &cspID, &c.Description, &txnCode, &c.Status, &submittedAt, &resolvedAt, &resolvedBy); err != nil {
		return nil, err
	}
	c.Contact = nullString(contact)
	c.CSPID = nullInt64(cspID)
	c.TransactionCode = nullString(txnCode)
	c.SubmittedAt = submittedAt.Time
	c.ResolvedAt = resolvedAt.ptr()
	c.ResolvedBy = nullInt64(resolvedBy)
	return &c, nil
}

func (s *SQLStore) CreateComplaint(ctx context.Context, in NewComplaint) (*Complaint, error) {
	const q = `
INSERT INTO complaints (customer_name, contact, csp_id, description, transaction_code, status, submitted_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + complaintColumns
	rec := in.record(s.opts.clock())
	c, err := getRow(ctx, s, scanComplaint, q,
		rec.CustomerName, stringParam(rec.Contact), int64Param(rec.CSPID), rec.Description,
		stringParam(rec.TransactionCode), rec.Status, rec.SubmittedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	return c, nil
}

func (s *SQLStore) GetComplaint(ctx context.Context, id int64) (*Complaint, error) {
	c, err := getRow(ctx, s, scanComplaint, `SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

func (s *SQLStore) ListComplaintsByCSP(ctx context.Context, cspID int64, limit int) ([]Complaint, error) {
	q := `SELECT ` + complaintColumns + ` FROM complaints WHERE csp_id = ? ORDER BY submitted_at DESC, id DESC` + limitClause(limit)
	list, err := listRows(ctx, s, scanComplaint, q, cspID)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return list, nil
}

func (s *SQLStore) UpdateComplaint(ctx context.Context, id int64, patch ComplaintPatch) (*Complaint, error) {
	c, err := updateRow(ctx, s, scanComplaint, "complaints", complaintColumns, id, patch.assignments())
	if err != nil {
		return nil, fmt.Errorf("update complaint: %w", err)
	}
	return c, nil
}
