package repo

import (
	"context"
	"database/sql"
	"fmt"
)

// -- Users --

const userColumns = `id, username, password, full_name, email, role, status, created_at, last_login, profile_image, additional_details`

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		createdAt dbTime
		lastLogin dbTime
		image     sql.NullString
		details   []byte
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Role, &u.Status, &createdAt, &lastLogin, &image, &details); err != nil {
		return nil, err
	}
	u.CreatedAt = createdAt.Time
	u.LastLogin = lastLogin.ptr()
	u.ProfileImage = nullString(image)
	u.AdditionalDetails = rawJSON(details)
	return &u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := getRow(ctx, s, scanUser, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := getRow(ctx, s, scanUser, `SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, username)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	const q = `
INSERT INTO users (username, password, full_name, email, role, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns
	rec := in.record(s.opts.clock())
	u, err := getRow(ctx, s, scanUser, q, rec.Username, rec.PasswordHash, rec.FullName, rec.Email, rec.Role, rec.Status, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	u, err := updateRow(ctx, s, scanUser, "users", userColumns, id, patch.assignments())
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// -- CSPs --

const cspColumns = `id, user_id, csp_code, address, district, state, risk_score, last_check_in, device_id, status, last_audit, latitude, longitude, is_red_zone`

func scanCSP(row rowScanner) (*CSP, error) {
	var (
		c           CSP
		lastCheckIn dbTime
		lastAudit   dbTime
		deviceID    sql.NullString
		lat, lng    sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Code, &c.Address, &c.District, &c.State, &c.RiskScore, &lastCheckIn, &deviceID, &c.Status, &lastAudit, &lat, &lng, &c.IsRedZone); err != nil {
		return nil, err
	}
	c.LastCheckIn = lastCheckIn.ptr()
	c.LastAudit = lastAudit.ptr()
	c.DeviceID = nullString(deviceID)
	c.Latitude = nullString(lat)
	c.Longitude = nullString(lng)
	return &c, nil
}

func (s *SQLStore) GetCSP(ctx context.Context, id int64) (*CSP, error) {
	c, err := getRow(ctx, s, scanCSP, `SELECT `+cspColumns+` FROM csps WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get csp: %w", err)
	}
	return c, nil
}

func (s *SQLStore) GetCSPByUserID(ctx context.Context, userID int64) (*CSP, error) {
	c, err := getRow(ctx, s, scanCSP, `SELECT `+cspColumns+` FROM csps WHERE user_id = ? ORDER BY id LIMIT 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get csp by user: %w", err)
	}
	return c, nil
}

func (s *SQLStore) CreateCSP(ctx context.Context, in NewCSP) (*CSP, error) {
	const q = `
INSERT INTO csps (user_id, csp_code, address, district, state, risk_score, device_id, status, latitude, longitude, is_red_zone)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + cspColumns
	rec := in.record()
	c, err := getRow(ctx, s, scanCSP, q,
		rec.UserID, rec.Code, rec.Address, rec.District, rec.State, rec.RiskScore,
		stringParam(rec.DeviceID), rec.Status, stringParam(rec.Latitude), stringParam(rec.Longitude), rec.IsRedZone,
	)
	if err != nil {
		return nil, fmt.Errorf("create csp: %w", err)
	}
	return c, nil
}

func (s *SQLStore) UpdateCSP(ctx context.Context, id int64, patch CSPPatch) (*CSP, error) {
	c, err := updateRow(ctx, s, scanCSP, "csps", cspColumns, id, patch.assignments())
	if err != nil {
		return nil, fmt.Errorf("update csp: %w", err)
	}
	return c, nil
}

// ListCSPs returns the CSPs matching every supplied filter field.
func (s *SQLStore) ListCSPs(ctx context.Context, filter CSPFilter) ([]CSP, error) {
	var w where
	if filter.Status != nil {
		w.eq("status", *filter.Status)
	}
	if filter.District != nil {
		w.eq("district", *filter.District)
	}
	if filter.State != nil {
		w.eq("state", *filter.State)
	}
	if filter.IsRedZone != nil {
		w.eq("is_red_zone", *filter.IsRedZone)
	}
	list, err := listRows(ctx, s, scanCSP, `SELECT `+cspColumns+` FROM csps`+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list csps: %w", err)
	}
	return list, nil
}
