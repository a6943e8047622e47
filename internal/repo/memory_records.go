package repo

import (
	"context"
	"fmt"
	"time"
)

// -- Transactions --

func (m *Memory) CreateTransaction(_ context.Context, in NewTransaction) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.csps[in.CSPID]; !ok {
		return nil, fmt.Errorf("create transaction: %w: csp %d", ErrInvalidReference, in.CSPID)
	}
	for _, t := range m.txns {
		if t.Code == in.Code {
			return nil, fmt.Errorf("create transaction: %w: code %q", ErrConflict, in.Code)
		}
	}
	t := in.record(m.opts.clock())
	m.seq.txn++
	t.ID = m.seq.txn
	m.txns[t.ID] = t
	return cloneTransaction(t), nil
}

func (m *Memory) GetTransaction(_ context.Context, id int64) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.txns[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(t), nil
}

func (m *Memory) ListTransactionsByCSP(_ context.Context, cspID int64, limit int) ([]Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Transaction{}
	for _, t := range m.txns {
		if t.CSPID == cspID {
			out = append(out, *cloneTransaction(t))
		}
	}
	newestFirst(out, func(t Transaction) (time.Time, int64) { return t.Timestamp, t.ID })
	return applyLimit(out, limit), nil
}

// -- Alerts --

func (m *Memory) CreateAlert(_ context.Context, in NewAlert) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.CSPID != nil {
		if _, ok := m.csps[*in.CSPID]; !ok {
			return nil, fmt.Errorf("create alert: %w: csp %d", ErrInvalidReference, *in.CSPID)
		}
	}
	for _, a := range m.alerts {
		if a.Code == in.Code {
			return nil, fmt.Errorf("create alert: %w: code %q", ErrConflict, in.Code)
		}
	}
	a := in.record(m.opts.clock())
	m.seq.alert++
	a.ID = m.seq.alert
	m.alerts[a.ID] = a
	return cloneAlert(a), nil
}

func (m *Memory) GetAlert(_ context.Context, id int64) (*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	return cloneAlert(a), nil
}

func (m *Memory) ListAlertsByCSP(ctx context.Context, cspID int64, limit int) ([]Alert, error) {
	return m.ListAlerts(ctx, AlertFilter{CSPID: &cspID}, limit)
}

func (m *Memory) ListAlerts(_ context.Context, filter AlertFilter, limit int) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Alert{}
	for _, a := range m.alerts {
		if filter.matches(a) {
			out = append(out, *cloneAlert(a))
		}
	}
	newestFirst(out, func(a Alert) (time.Time, int64) { return a.Timestamp, a.ID })
	return applyLimit(out, limit), nil
}

func (f AlertFilter) matches(a Alert) bool {
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.CSPID != nil && (a.CSPID == nil || *a.CSPID != *f.CSPID) {
		return false
	}
	return true
}

func (m *Memory) UpdateAlert(_ context.Context, id int64, patch AlertPatch) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	if patch.ResolvedBy.Valid {
		if _, ok := m.users[patch.ResolvedBy.Value]; !ok {
			return nil, fmt.Errorf("update alert: %w: user %d", ErrInvalidReference, patch.ResolvedBy.Value)
		}
	}
	patch.apply(&a)
	m.alerts[id] = a
	return cloneAlert(a), nil
}

// -- Audits --

func (m *Memory) CreateAudit(_ context.Context, in NewAudit) (*Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.csps[in.CSPID]; !ok {
		return nil, fmt.Errorf("create audit: %w: csp %d", ErrInvalidReference, in.CSPID)
	}
	if _, ok := m.users[in.AuditorID]; !ok {
		return nil, fmt.Errorf("create audit: %w: auditor %d", ErrInvalidReference, in.AuditorID)
	}
	a := in.record()
	m.seq.audit++
	a.ID = m.seq.audit
	m.audits[a.ID] = a
	return cloneAudit(a), nil
}

func (m *Memory) GetAudit(_ context.Context, id int64) (*Audit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.audits[id]
	if !ok {
		return nil, nil
	}
	return cloneAudit(a), nil
}

func (m *Memory) ListAuditsByCSP(_ context.Context, cspID int64, limit int) ([]Audit, error) {
	return m.listAudits(func(a Audit) bool { return a.CSPID == cspID }, limit), nil
}

func (m *Memory) ListAuditsByAuditor(_ context.Context, auditorID int64, limit int) ([]Audit, error) {
	return m.listAudits(func(a Audit) bool { return a.AuditorID == auditorID }, limit), nil
}

func (m *Memory) listAudits(keep func(Audit) bool, limit int) []Audit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Audit{}
	for _, a := range m.audits {
		if keep(a) {
			out = append(out, *cloneAudit(a))
		}
	}
	newestFirst(out, func(a Audit) (time.Time, int64) { return a.sortTime(), a.ID })
	return applyLimit(out, limit)
}

func (m *Memory) UpdateAudit(_ context.Context, id int64, patch AuditPatch) (*Audit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.audits[id]
	if !ok {
		return nil, nil
	}
	patch.apply(&a)
	m.audits[id] = a
	return cloneAudit(a), nil
}

// -- Complaints --

func (m *Memory) CreateComplaint(_ context.Context, in NewComplaint) (*Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.CSPID != nil {
		if _, ok := m.csps[*in.CSPID]; !ok {
			return nil, fmt.Errorf("create complaint: %w: csp %d", ErrInvalidReference, *in.CSPID)
		}
	}
	c := in.record(m.opts.clock())
	m.seq.complaint++
	c.ID = m.seq.complaint
	m.complaints[c.ID] = c
	return cloneComplaint(c), nil
}

func (m *Memory) GetComplaint(_ context.Context, id int64) (*Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, nil
	}
	return cloneComplaint(c), nil
}

func (m *Memory) ListComplaintsByCSP(_ context.Context, cspID int64, limit int) ([]Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Complaint{}
	for _, c := range m.complaints {
		if c.CSPID != nil && *c.CSPID == cspID {
			out = append(out, *cloneComplaint(c))
		}
	}
	newestFirst(out, func(c Complaint) (time.Time, int64) { return c.SubmittedAt, c.ID })
	return applyLimit(out, limit), nil
}

func (m *Memory) UpdateComplaint(_ context.Context, id int64, patch ComplaintPatch) (*Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, nil
	}
	if patch.ResolvedBy.Valid {
		if _, ok := m.users[patch.ResolvedBy.Value]; !ok {
			return nil, fmt.Errorf("update complaint: %w: user %d", ErrInvalidReference, patch.ResolvedBy.Value)
		}
	}
	patch.apply(&c)
	m.complaints[id] = c
	return cloneComplaint(c), nil
}

// -- Check-ins --

func (m *Memory) CreateCheckIn(_ context.Context, in NewCheckIn) (*CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.csps[in.CSPID]; !ok {
		return nil, fmt.Errorf("create check-in: %w: csp %d", ErrInvalidReference, in.CSPID)
	}
	c := in.record(m.opts.clock())
	m.seq.checkIn++
	c.ID = m.seq.checkIn
	m.checkIns[c.ID] = c
	return cloneCheckIn(c), nil
}

func (m *Memory) ListCheckInsByCSP(_ context.Context, cspID int64, limit int) ([]CheckIn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []CheckIn{}
	for _, c := range m.checkIns {
		if c.CSPID == cspID {
			out = append(out, *cloneCheckIn(c))
		}
	}
	newestFirst(out, func(c CheckIn) (time.Time, int64) { return c.Timestamp, c.ID })
	return applyLimit(out, limit), nil
}

func (m *Memory) GetLatestCheckInByCSP(ctx context.Context, cspID int64) (*CheckIn, error) {
	list, err := m.ListCheckInsByCSP(ctx, cspID, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func cloneTransaction(t Transaction) *Transaction {
	t.Location = normalizeRaw(t.Location)
	t.DeviceInfo = normalizeRaw(t.DeviceInfo)
	t.Receipt = clonePtr(t.Receipt)
	return &t
}

func cloneAlert(a Alert) *Alert {
	a.CSPID = clonePtr(a.CSPID)
	a.ResolvedBy = clonePtr(a.ResolvedBy)
	a.ResolvedAt = clonePtr(a.ResolvedAt)
	return &a
}

func cloneAudit(a Audit) *Audit {
	a.CompletedDate = clonePtr(a.CompletedDate)
	a.Findings = normalizeRaw(a.Findings)
	a.Images = normalizeRaw(a.Images)
	return &a
}

func cloneComplaint(c Complaint) *Complaint {
	c.Contact = clonePtr(c.Contact)
	c.CSPID = clonePtr(c.CSPID)
	c.TransactionCode = clonePtr(c.TransactionCode)
	c.ResolvedAt = clonePtr(c.ResolvedAt)
	c.ResolvedBy = clonePtr(c.ResolvedBy)
	return &c
}

func cloneCheckIn(c CheckIn) *CheckIn {
	c.Location = normalizeRaw(c.Location)
	c.DeviceInfo = normalizeRaw(c.DeviceInfo)
	c.FaceImageURL = clonePtr(c.FaceImageURL)
	c.VerificationMethod = clonePtr(c.VerificationMethod)
	return &c
}
