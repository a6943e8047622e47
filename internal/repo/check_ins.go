package repo

import (
	"context"
	"database/sql"
	"fmt"
)

const checkInColumns = `id, csp_id, occurred_at, location, device_info, face_image_url, verified, verification_method`

func scanCheckIn(row rowScanner) (*CheckIn, error) {
	var (
		c          CheckIn
		occurredAt dbTime
		location   []byte
		deviceInfo []byte
		faceURL    sql.NullString
		method     sql.NullString
	)
	if err := row.Scan(&c.ID, &c.CSPID, &occurredAt, &location, &deviceInfo, &faceURL, &c.Verified, &method); err != nil {
		return nil, err
	}
	c.Timestamp = occurredAt.Time
	c.Location = rawJSON(location)
	c.DeviceInfo = rawJSON(deviceInfo)
	c.FaceImageURL = nullString(faceURL)
	c.VerificationMethod = nullString(method)
	return &c, nil
}

func (s *SQLStore) CreateCheckIn(ctx context.Context, in NewCheckIn) (*CheckIn, error) {
	const q = `
INSERT INTO check_ins (csp_id, occurred_at, location, device_info, face_image_url, verified)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + checkInColumns
	rec := in.record(s.opts.clock())
	c, err := getRow(ctx, s, scanCheckIn, q,
		rec.CSPID, rec.Timestamp, jsonParam(rec.Location), jsonParam(rec.DeviceInfo), stringParam(rec.FaceImageURL), rec.Verified,
	)
	if err != nil {
		return nil, fmt.Errorf("create check-in: %w", err)
	}
	return c, nil
}

func (s *SQLStore) ListCheckInsByCSP(ctx context.Context, cspID int64, limit int) ([]CheckIn, error) {
	q := `SELECT ` + checkInColumns + ` FROM check_ins WHERE csp_id = ? ORDER BY occurred_at DESC, id DESC` + limitClause(limit)
	list, err := listRows(ctx, s, scanCheckIn, q, cspID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return list, nil
}

func (s *SQLStore) GetLatestCheckInByCSP(ctx context.Context, cspID int64) (*CheckIn, error) {
	q := `SELECT ` + checkInColumns + ` FROM check_ins WHERE csp_id = ? ORDER BY occurred_at DESC, id DESC LIMIT 1`
	c, err := getRow(ctx, s, scanCheckIn, q, cspID)
	if err != nil {
		return nil, fmt.Errorf("get latest check-in: %w", err)
	}
	return c, nil
}
