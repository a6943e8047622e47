package repo

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"
)

// Memory keeps every entity kind in process maps. It is the default driver
// for local runs and tests; data is lost on restart.
type Memory struct {
	mu   sync.RWMutex
	opts options

	users      map[int64]User
	csps       map[int64]CSP
	txns       map[int64]Transaction
	alerts     map[int64]Alert
	audits     map[int64]Audit
	complaints map[int64]Complaint
	checkIns   map[int64]CheckIn
	statuses   map[int64]SystemStatusItem
	warMode    *WarModeStatus

	seq struct {
		user, csp, txn, alert, audit, complaint, checkIn, status, warMode int64
	}
}

// NewMemory returns an empty store seeded with the default system status
// rows and an inactive war mode singleton, unless WithoutSeed is given.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		opts:       buildOptions(opts),
		users:      make(map[int64]User),
		csps:       make(map[int64]CSP),
		txns:       make(map[int64]Transaction),
		alerts:     make(map[int64]Alert),
		audits:     make(map[int64]Audit),
		complaints: make(map[int64]Complaint),
		checkIns:   make(map[int64]CheckIn),
		statuses:   make(map[int64]SystemStatusItem),
	}
	if !m.opts.skipSeed {
		m.seedLocked()
	}
	return m
}

func (m *Memory) Close() {}

func (m *Memory) Ping(context.Context) error { return nil }

// RunMigrations is a no-op; the memory store has no schema.
func (m *Memory) RunMigrations(context.Context, fs.FS) error { return nil }

// Seed adds any missing default service rows and the war mode singleton.
func (m *Memory) Seed(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seedLocked()
	return nil
}

func (m *Memory) seedLocked() {
	now := m.opts.clock()
	for _, item := range defaultSystemStatuses(now) {
		if _, ok := m.statusByServiceLocked(item.Service); ok {
			continue
		}
		m.seq.status++
		item.ID = m.seq.status
		m.statuses[item.ID] = item
	}
	if m.warMode == nil {
		w := defaultWarMode()
		m.seq.warMode++
		w.ID = m.seq.warMode
		m.warMode = &w
	}
}

// -- Users --

func (m *Memory) GetUser(_ context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateUser(_ context.Context, in NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == in.Username {
			return nil, fmt.Errorf("create user: %w: username %q", ErrConflict, in.Username)
		}
	}
	u := in.record(m.opts.clock())
	m.seq.user++
	u.ID = m.seq.user
	m.users[u.ID] = u
	return cloneUser(u), nil
}

func (m *Memory) UpdateUser(_ context.Context, id int64, patch UserPatch) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	patch.apply(&u)
	m.users[id] = u
	return cloneUser(u), nil
}

// -- CSPs --

func (m *Memory) GetCSP(_ context.Context, id int64) (*CSP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.csps[id]
	if !ok {
		return nil, nil
	}
	return cloneCSP(c), nil
}

func (m *Memory) GetCSPByUserID(_ context.Context, userID int64) (*CSP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *CSP
	for _, c := range m.csps {
		if c.UserID == userID && (found == nil || c.ID < found.ID) {
			found = cloneCSP(c)
		}
	}
	return found, nil
}

func (m *Memory) CreateCSP(_ context.Context, in NewCSP) (*CSP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[in.UserID]; !ok {
		return nil, fmt.Errorf("create csp: %w: user %d", ErrInvalidReference, in.UserID)
	}
	for _, c := range m.csps {
		if c.Code == in.Code {
			return nil, fmt.Errorf("create csp: %w: code %q", ErrConflict, in.Code)
		}
	}
	c := in.record()
	m.seq.csp++
	c.ID = m.seq.csp
	m.csps[c.ID] = c
	return cloneCSP(c), nil
}

func (m *Memory) UpdateCSP(_ context.Context, id int64, patch CSPPatch) (*CSP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.csps[id]
	if !ok {
		return nil, nil
	}
	patch.apply(&c)
	m.csps[id] = c
	return cloneCSP(c), nil
}

func (m *Memory) ListCSPs(_ context.Context, filter CSPFilter) ([]CSP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CSP, 0, len(m.csps))
	for _, c := range m.csps {
		if !filter.matches(c) {
			continue
		}
		out = append(out, *cloneCSP(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f CSPFilter) matches(c CSP) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.District != nil && c.District != *f.District {
		return false
	}
	if f.State != nil && c.State != *f.State {
		return false
	}
	if f.IsRedZone != nil && c.IsRedZone != *f.IsRedZone {
		return false
	}
	return true
}

// -- System status --

func (m *Memory) ListSystemStatus(context.Context) ([]SystemStatusItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SystemStatusItem, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, *cloneStatus(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetSystemStatus(_ context.Context, service string) (*SystemStatusItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statusByServiceLocked(service)
	if !ok {
		return nil, nil
	}
	return cloneStatus(s), nil
}

func (m *Memory) UpdateSystemStatus(_ context.Context, service string, patch SystemStatusPatch) (*SystemStatusItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statusByServiceLocked(service)
	if !ok {
		return nil, nil
	}
	patch.apply(&s, m.opts.clock())
	m.statuses[s.ID] = s
	return cloneStatus(s), nil
}

func (m *Memory) statusByServiceLocked(service string) (SystemStatusItem, bool) {
	for _, s := range m.statuses {
		if s.Service == service {
			return s, true
		}
	}
	return SystemStatusItem{}, false
}

// -- War mode --

func (m *Memory) GetWarMode(context.Context) (*WarModeStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.warMode == nil {
		return nil, nil
	}
	return cloneWarMode(*m.warMode), nil
}

// UpdateWarMode patches the singleton, creating it from defaults first when
// it does not exist yet.
func (m *Memory) UpdateWarMode(_ context.Context, patch WarModePatch) (*WarModeStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if patch.ActivatedBy.Valid {
		if _, ok := m.users[patch.ActivatedBy.Value]; !ok {
			return nil, fmt.Errorf("update war mode: %w: user %d", ErrInvalidReference, patch.ActivatedBy.Value)
		}
	}
	w := defaultWarMode()
	if m.warMode != nil {
		w = *m.warMode
	} else {
		m.seq.warMode++
		w.ID = m.seq.warMode
	}
	patch.apply(&w)
	m.warMode = &w
	return cloneWarMode(w), nil
}

// -- helpers --

func newestFirst[T any](items []T, key func(T) (time.Time, int64)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}

func applyLimit[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func cloneUser(u User) *User {
	u.LastLogin = clonePtr(u.LastLogin)
	u.ProfileImage = clonePtr(u.ProfileImage)
	u.AdditionalDetails = normalizeRaw(u.AdditionalDetails)
	return &u
}

func cloneCSP(c CSP) *CSP {
	c.LastCheckIn = clonePtr(c.LastCheckIn)
	c.DeviceID = clonePtr(c.DeviceID)
	c.LastAudit = clonePtr(c.LastAudit)
	c.Latitude = clonePtr(c.Latitude)
	c.Longitude = clonePtr(c.Longitude)
	return &c
}

func cloneStatus(s SystemStatusItem) *SystemStatusItem {
	s.Details = clonePtr(s.Details)
	return &s
}

func cloneWarMode(w WarModeStatus) *WarModeStatus {
	w.ActivatedBy = clonePtr(w.ActivatedBy)
	w.ActivatedAt = clonePtr(w.ActivatedAt)
	w.DeactivatedAt = clonePtr(w.DeactivatedAt)
	w.AffectedAreas = cloneStrings(w.AffectedAreas)
	w.Instructions = cloneStrings(w.Instructions)
	return &w
}
