package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const transactionColumns = `id, transaction_code, csp_id, customer_name, type, amount, status, occurred_at, location, device_info, receipt`

func scanTransaction(row rowScanner) (*Transaction, error) {
	var (
		t          Transaction
		occurredAt dbTime
		location   []byte
		deviceInfo []byte
		receipt    sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Code, &t.CSPID, &t.CustomerName, &t.Type, &t.Amount, &t.Status, &occurredAt, &location, &deviceInfo, &receipt); err != nil {
		return nil, err
	}
	t.Timestamp = occurredAt.Time
	t.Location = rawJSON(location)
	t.DeviceInfo = rawJSON(deviceInfo)
	t.Receipt = nullString(receipt)
	return &t, nil
}

func (s *SQLStore) CreateTransaction(ctx context.Context, in NewTransaction) (*Transaction, error) {
	const q = `
INSERT INTO transactions (transaction_code, csp_id, customer_name, type, amount, status, occurred_at, location, device_info)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns
	rec := in.record(s.opts.clock())
	t, err := getRow(ctx, s, scanTransaction, q,
		rec.Code, rec.CSPID, rec.CustomerName, rec.Type, rec.Amount, rec.Status, rec.Timestamp,
		jsonParam(rec.Location), jsonParam(rec.DeviceInfo),
	)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

func (s *SQLStore) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	t, err := getRow(ctx, s, scanTransaction, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *SQLStore) ListTransactionsByCSP(ctx context.Context, cspID int64, limit int) ([]Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE csp_id = ? ORDER BY occurred_at DESC, id DESC` + limitClause(limit)
	list, err := listRows(ctx, s, scanTransaction, q, cspID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}
