package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Nullable is a merge-patch field for a nullable column. Set reports that
// the key was present in the payload; Valid is false for an explicit null.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Null returns a field that clears the column.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Some returns a field that sets the column to v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		var zero T
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// ptr returns the patched value, or nil for an explicit null.
func (n Nullable[T]) ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// assignment is one "column = value" pair of an UPDATE statement.
type assignment struct {
	column string
	value  any
}

type assignments []assignment

func (a *assignments) add(column string, value any) {
	*a = append(*a, assignment{column: column, value: value})
}

func setPtr[T any](a *assignments, column string, p *T) {
	if p != nil {
		a.add(column, *p)
	}
}

func setNullable[T any](a *assignments, column string, n Nullable[T]) {
	if !n.Set {
		return
	}
	if !n.Valid {
		a.add(column, nil)
		return
	}
	a.add(column, n.Value)
}

func setNullableTime(a *assignments, column string, n Nullable[time.Time]) {
	if !n.Set {
		return
	}
	if !n.Valid {
		a.add(column, nil)
		return
	}
	a.add(column, normalizeTime(n.Value))
}

func setNullableJSON(a *assignments, column string, n Nullable[json.RawMessage]) {
	if !n.Set {
		return
	}
	a.add(column, jsonParam(n.Value))
}

func setNullableList(a *assignments, column string, n Nullable[[]string]) error {
	if !n.Set {
		return nil
	}
	if !n.Valid {
		a.add(column, nil)
		return nil
	}
	param, err := listParam(n.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", column, err)
	}
	a.add(column, param)
	return nil
}

func patchTime(dst **time.Time, n Nullable[time.Time]) {
	if !n.Set {
		return
	}
	if !n.Valid {
		*dst = nil
		return
	}
	t := normalizeTime(n.Value)
	*dst = &t
}

func patchNullable[T any](dst **T, n Nullable[T]) {
	if n.Set {
		*dst = n.ptr()
	}
}

func patchJSON(dst *json.RawMessage, n Nullable[json.RawMessage]) {
	if n.Set {
		*dst = normalizeRaw(n.Value)
	}
}

func patchList(dst *[]string, n Nullable[[]string]) {
	if !n.Set {
		return
	}
	if !n.Valid {
		*dst = nil
		return
	}
	*dst = cloneStrings(n.Value)
}

func patchValue[T any](dst *T, p *T) {
	if p != nil {
		*dst = *p
	}
}

// UserPatch updates a user's profile fields.
type UserPatch struct {
	FullName          *string                   `json:"fullName" validate:"omitempty,min=1"`
	Email             *string                   `json:"email" validate:"omitempty,email"`
	Role              *string                   `json:"role" validate:"omitempty,oneof=admin csp fi auditor bank customer"`
	Status            *string                   `json:"status" validate:"omitempty,oneof=active inactive suspended pending"`
	LastLogin         Nullable[time.Time]       `json:"lastLogin"`
	ProfileImage      Nullable[string]          `json:"profileImage"`
	AdditionalDetails Nullable[json.RawMessage] `json:"additionalDetails"`
}

func (p UserPatch) apply(u *User) {
	patchValue(&u.FullName, p.FullName)
	patchValue(&u.Email, p.Email)
	patchValue(&u.Role, p.Role)
	patchValue(&u.Status, p.Status)
	patchTime(&u.LastLogin, p.LastLogin)
	patchNullable(&u.ProfileImage, p.ProfileImage)
	patchJSON(&u.AdditionalDetails, p.AdditionalDetails)
}

func (p UserPatch) assignments() assignments {
	var a assignments
	setPtr(&a, "full_name", p.FullName)
	setPtr(&a, "email", p.Email)
	setPtr(&a, "role", p.Role)
	setPtr(&a, "status", p.Status)
	setNullableTime(&a, "last_login", p.LastLogin)
	setNullable(&a, "profile_image", p.ProfileImage)
	setNullableJSON(&a, "additional_details", p.AdditionalDetails)
	return a
}

type CSPPatch struct {
	Address     *string             `json:"address" validate:"omitempty,min=1"`
	District    *string             `json:"district" validate:"omitempty,min=1"`
	State       *string             `json:"state" validate:"omitempty,min=1"`
	RiskScore   *int                `json:"riskScore" validate:"omitempty,gte=0,lte=100"`
	LastCheckIn Nullable[time.Time] `json:"lastCheckIn"`
	DeviceID    Nullable[string]    `json:"deviceId"`
	Status      *string             `json:"status" validate:"omitempty,oneof=active inactive suspended flagged"`
	LastAudit   Nullable[time.Time] `json:"lastAudit"`
	Latitude    Nullable[string]    `json:"latitude"`
	Longitude   Nullable[string]    `json:"longitude"`
	IsRedZone   *bool               `json:"isRedZone"`
}

func (p CSPPatch) apply(c *CSP) {
	patchValue(&c.Address, p.Address)
	patchValue(&c.District, p.District)
	patchValue(&c.State, p.State)
	patchValue(&c.RiskScore, p.RiskScore)
	patchTime(&c.LastCheckIn, p.LastCheckIn)
	patchNullable(&c.DeviceID, p.DeviceID)
	patchValue(&c.Status, p.Status)
	patchTime(&c.LastAudit, p.LastAudit)
	patchNullable(&c.Latitude, p.Latitude)
	patchNullable(&c.Longitude, p.Longitude)
	patchValue(&c.IsRedZone, p.IsRedZone)
}

func (p CSPPatch) assignments() assignments {
	var a assignments
	setPtr(&a, "address", p.Address)
	setPtr(&a, "district", p.District)
	setPtr(&a, "state", p.State)
	setPtr(&a, "risk_score", p.RiskScore)
	setNullableTime(&a, "last_check_in", p.LastCheckIn)
	setNullable(&a, "device_id", p.DeviceID)
	setPtr(&a, "status", p.Status)
	setNullableTime(&a, "last_audit", p.LastAudit)
	setNullable(&a, "latitude", p.Latitude)
	setNullable(&a, "longitude", p.Longitude)
	setPtr(&a, "is_red_zone", p.IsRedZone)
	return a
}

type AlertPatch struct {
	Description *string             `json:"description" validate:"omitempty,min=1"`
	Severity    *string             `json:"severity" validate:"omitempty,oneof=high medium low"`
	Status      *string             `json:"status" validate:"omitempty,oneof=pending resolved escalated"`
	ResolvedBy  Nullable[int64]     `json:"resolvedBy"`
	ResolvedAt  Nullable[time.Time] `json:"resolvedAt"`
}

func (p AlertPatch) apply(al *Alert) {
	patchValue(&al.Description, p.Description)
	patchValue(&al.Severity, p.Severity)
	patchValue(&al.Status, p.Status)
	patchNullable(&al.ResolvedBy, p.ResolvedBy)
	patchTime(&al.ResolvedAt, p.ResolvedAt)
}

func (p AlertPatch) assignments() assignments {
	var a assignments
	setPtr(&a, "description", p.Description)
	setPtr(&a, "severity", p.Severity)
	setPtr(&a, "status", p.Status)
	setNullable(&a, "resolved_by", p.ResolvedBy)
	setNullableTime(&a, "resolved_at", p.ResolvedAt)
	return a
}

type AuditPatch struct {
	ScheduledDate    *time.Time                `json:"scheduledDate"`
	CompletedDate    Nullable[time.Time]       `json:"completedDate"`
	Status           *string                   `json:"status" validate:"omitempty,oneof=scheduled completed missed priority"`
	Findings         Nullable[json.RawMessage] `json:"findings"`
	Images           Nullable[json.RawMessage] `json:"images"`
	LocationVerified *bool                     `json:"locationVerified"`
	FaceVerified     *bool                     `json:"faceVerified"`
}

func (p AuditPatch) apply(au *Audit) {
	if p.ScheduledDate != nil {
		au.ScheduledDate = normalizeTime(*p.ScheduledDate)
	}
	patchTime(&au.CompletedDate, p.CompletedDate)
	patchValue(&au.Status, p.Status)
	patchJSON(&au.Findings, p.Findings)
	patchJSON(&au.Images, p.Images)
	patchValue(&au.LocationVerified, p.LocationVerified)
	patchValue(&au.FaceVerified, p.FaceVerified)
}

func (p AuditPatch) assignments() assignments {
	var a assignments
	if p.ScheduledDate != nil {
		a.add("scheduled_date", normalizeTime(*p.ScheduledDate))
	}
	setNullableTime(&a, "completed_date", p.CompletedDate)
	setPtr(&a, "status", p.Status)
	setNullableJSON(&a, "findings", p.Findings)
	setNullableJSON(&a, "images", p.Images)
	setPtr(&a, "location_verified", p.LocationVerified)
	setPtr(&a, "face_verified", p.FaceVerified)
	return a
}

type ComplaintPatch struct {
	Contact         Nullable[string]    `json:"contact"`
	Description     *string             `json:"description" validate:"omitempty,min=1"`
	TransactionCode Nullable[string]    `json:"transactionId"`
	Status          *string             `json:"status" validate:"omitempty,oneof=open in-progress resolved escalated"`
	ResolvedAt      Nullable[time.Time] `json:"resolvedAt"`
	ResolvedBy      Nullable[int64]     `json:"resolvedBy"`
}

func (p ComplaintPatch) apply(c *Complaint) {
	patchNullable(&c.Contact, p.Contact)
	patchValue(&c.Description, p.Description)
	patchNullable(&c.TransactionCode, p.TransactionCode)
	patchValue(&c.Status, p.Status)
	patchTime(&c.ResolvedAt, p.ResolvedAt)
	patchNullable(&c.ResolvedBy, p.ResolvedBy)
}

func (p ComplaintPatch) assignments() assignments {
	var a assignments
	setNullable(&a, "contact", p.Contact)
	setPtr(&a, "description", p.Description)
	setNullable(&a, "transaction_code", p.TransactionCode)
	setPtr(&a, "status", p.Status)
	setNullableTime(&a, "resolved_at", p.ResolvedAt)
	setNullable(&a, "resolved_by", p.ResolvedBy)
	return a
}

type SystemStatusPatch struct {
	Status      *string          `json:"status" validate:"omitempty,oneof=operational degraded down"`
	Performance *int             `json:"performance" validate:"omitempty,gte=0,lte=100"`
	Details     Nullable[string] `json:"details"`
}

func (p SystemStatusPatch) apply(s *SystemStatusItem, now time.Time) {
	patchValue(&s.Status, p.Status)
	patchValue(&s.Performance, p.Performance)
	patchNullable(&s.Details, p.Details)
	s.LastUpdated = now
}

func (p SystemStatusPatch) assignments(now time.Time) assignments {
	var a assignments
	setPtr(&a, "status", p.Status)
	setPtr(&a, "performance", p.Performance)
	setNullable(&a, "details", p.Details)
	a.add("last_updated", now)
	return a
}

type WarModePatch struct {
	IsActive      *bool               `json:"isActive"`
	Level         *int                `json:"level" validate:"omitempty,gte=1,lte=3"`
	ActivatedBy   Nullable[int64]     `json:"activatedBy"`
	ActivatedAt   Nullable[time.Time] `json:"activatedAt"`
	DeactivatedAt Nullable[time.Time] `json:"deactivatedAt"`
	AffectedAreas Nullable[[]string]  `json:"affectedAreas"`
	Instructions  Nullable[[]string]  `json:"instructions"`
}

func (p WarModePatch) apply(w *WarModeStatus) {
	patchValue(&w.IsActive, p.IsActive)
	patchValue(&w.Level, p.Level)
	patchNullable(&w.ActivatedBy, p.ActivatedBy)
	patchTime(&w.ActivatedAt, p.ActivatedAt)
	patchTime(&w.DeactivatedAt, p.DeactivatedAt)
	patchList(&w.AffectedAreas, p.AffectedAreas)
	patchList(&w.Instructions, p.Instructions)
}

func (p WarModePatch) assignments() (assignments, error) {
	var a assignments
	setPtr(&a, "is_active", p.IsActive)
	setPtr(&a, "level", p.Level)
	setNullable(&a, "activated_by", p.ActivatedBy)
	setNullableTime(&a, "activated_at", p.ActivatedAt)
	setNullableTime(&a, "deactivated_at", p.DeactivatedAt)
	if err := setNullableList(&a, "affected_areas", p.AffectedAreas); err != nil {
		return nil, err
	}
	if err := setNullableList(&a, "instructions", p.Instructions); err != nil {
		return nil, err
	}
	return a, nil
}

func jsonParam(raw json.RawMessage) any {
	raw = normalizeRaw(raw)
	if raw == nil {
		return nil
	}
	return string(raw)
}

func listParam(list []string) (any, error) {
	if list == nil {
		return nil, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func listFromJSON(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}
