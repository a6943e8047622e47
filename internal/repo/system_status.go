package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// -- System status --

const statusColumns = `id, service, status, performance, last_updated, details`

func scanStatus(row rowScanner) (*SystemStatusItem, error) {
	var (
		item        SystemStatusItem
		lastUpdated dbTime
		details     sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Service, &item.Status, &item.Performance, &lastUpdated, &details); err != nil {
		return nil, err
	}
	item.LastUpdated = lastUpdated.Time
	item.Details = nullString(details)
	return &item, nil
}

func (s *SQLStore) ListSystemStatus(ctx context.Context) ([]SystemStatusItem, error) {
	list, err := listRows(ctx, s, scanStatus, `SELECT `+statusColumns+` FROM system_status ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list system status: %w", err)
	}
	return list, nil
}

func (s *SQLStore) GetSystemStatus(ctx context.Context, service string) (*SystemStatusItem, error) {
	item, err := getRow(ctx, s, scanStatus, `SELECT `+statusColumns+` FROM system_status WHERE service = ?`, service)
	if err != nil {
		return nil, fmt.Errorf("get system status: %w", err)
	}
	return item, nil
}

// UpdateSystemStatus patches a service row by name and stamps lastUpdated.
func (s *SQLStore) UpdateSystemStatus(ctx context.Context, service string, patch SystemStatusPatch) (*SystemStatusItem, error) {
	q, args := buildUpdate("system_status", statusColumns, "service = ?", patch.assignments(s.opts.clock()))
	item, err := getRow(ctx, s, scanStatus, q, append(args, service)...)
	if err != nil {
		return nil, fmt.Errorf("update system status: %w", err)
	}
	return item, nil
}

// -- War mode --

const warModeColumns = `id, is_active, level, activated_by, activated_at, deactivated_at, affected_areas, instructions`

func scanWarMode(row rowScanner) (*WarModeStatus, error) {
	var (
		w             WarModeStatus
		activatedBy   sql.NullInt64
		activatedAt   dbTime
		deactivatedAt dbTime
		areas         []byte
		instructions  []byte
	)
	if err := row.Scan(&w.ID, &w.IsActive, &w.Level, &activatedBy, &activatedAt, &deactivatedAt, &areas, &instructions); err != nil {
		return nil, err
	}
	w.ActivatedBy = nullInt64(activatedBy)
	w.ActivatedAt = activatedAt.ptr()
	w.DeactivatedAt = deactivatedAt.ptr()

	var err error
	if w.AffectedAreas, err = listFromJSON(areas); err != nil {
		return nil, fmt.Errorf("affected areas: %w", err)
	}
	if w.Instructions, err = listFromJSON(instructions); err != nil {
		return nil, fmt.Errorf("instructions: %w", err)
	}
	return &w, nil
}

func (s *SQLStore) GetWarMode(ctx context.Context) (*WarModeStatus, error) {
	w, err := getRow(ctx, s, scanWarMode, `SELECT `+warModeColumns+` FROM war_mode WHERE slot = 1`)
	if err != nil {
		return nil, fmt.Errorf("get war mode: %w", err)
	}
	return w, nil
}

// UpdateWarMode patches the singleton row, inserting it from defaults when
// it does not exist. The unique slot column settles racing inserts: the
// loser retries as an update.
func (s *SQLStore) UpdateWarMode(ctx context.Context, patch WarModePatch) (*WarModeStatus, error) {
	sets, err := patch.assignments()
	if err != nil {
		return nil, fmt.Errorf("update war mode: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		var w *WarModeStatus
		if len(sets) == 0 {
			w, err = s.GetWarMode(ctx)
		} else {
			q, args := buildUpdate("war_mode", warModeColumns, "slot = 1", sets)
			w, err = getRow(ctx, s, scanWarMode, q, args...)
		}
		if err != nil {
			return nil, fmt.Errorf("update war mode: %w", err)
		}
		if w != nil {
			return w, nil
		}

		w, err = s.insertWarMode(ctx, patch)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update war mode: %w", err)
		}
		return w, nil
	}
	return nil, fmt.Errorf("update war mode: %w", ErrConflict)
}

func (s *SQLStore) insertWarMode(ctx context.Context, patch WarModePatch) (*WarModeStatus, error) {
	const q = `
INSERT INTO war_mode (slot, is_active, level, activated_by, activated_at, deactivated_at, affected_areas, instructions)
VALUES (1, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + warModeColumns
	rec := defaultWarMode()
	patch.apply(&rec)

	areas, err := listParam(rec.AffectedAreas)
	if err != nil {
		return nil, err
	}
	instructions, err := listParam(rec.Instructions)
	if err != nil {
		return nil, err
	}
	return getRow(ctx, s, scanWarMode, q,
		rec.IsActive, rec.Level, int64Param(rec.ActivatedBy), timeParam(rec.ActivatedAt), timeParam(rec.DeactivatedAt),
		areas, instructions,
	)
}
