package repo

import (
	"encoding/json"
	"math/rand"
	"time"
)

// User represents the users table row. PasswordHash never leaves the
// process in JSON.
type User struct {
	ID                int64           `json:"id"`
	Username          string          `json:"username"`
	PasswordHash      string          `json:"-"`
	FullName          string          `json:"fullName"`
	Email             string          `json:"email"`
	Role              string          `json:"role"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	LastLogin         *time.Time      `json:"lastLogin"`
	ProfileImage      *string         `json:"profileImage"`
	AdditionalDetails json.RawMessage `json:"additionalDetails"`
}

// NewUser is the accepted create-user payload. By the time it reaches a
// store Password holds the credential hash, not the plain text.
type NewUser struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,maxbytes=72"`
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=admin csp fi auditor bank customer"`
	Status   string `json:"status" validate:"omitempty,oneof=active inactive suspended pending"`
}

// CSP is a customer service point operated by an agent user.
type CSP struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Code        string     `json:"cspId"`
	Address     string     `json:"address"`
	District    string     `json:"district"`
	State       string     `json:"state"`
	RiskScore   int        `json:"riskScore"`
	LastCheckIn *time.Time `json:"lastCheckIn"`
	DeviceID    *string    `json:"deviceId"`
	Status      string     `json:"status"`
	LastAudit   *time.Time `json:"lastAudit"`
	Latitude    *string    `json:"latitude"`
	Longitude   *string    `json:"longitude"`
	IsRedZone   bool       `json:"isRedZone"`
}

type NewCSP struct {
	UserID    int64   `json:"userId" validate:"required"`
	Code      string  `json:"cspId" validate:"required"`
	Address   string  `json:"address" validate:"required"`
	District  string  `json:"district" validate:"required"`
	State     string  `json:"state" validate:"required"`
	DeviceID  *string `json:"deviceId"`
	Latitude  *string `json:"latitude"`
	Longitude *string `json:"longitude"`
}

// CSPFilter narrows ListCSPs. Nil fields are not applied; supplied fields
// must all match.
type CSPFilter struct {
	Status    *string
	District  *string
	State     *string
	IsRedZone *bool
}

type Transaction struct {
	ID           int64           `json:"id"`
	Code         string          `json:"transactionId"`
	CSPID        int64           `json:"cspId"`
	CustomerName string          `json:"customerName"`
	Type         string          `json:"type"`
	Amount       int64           `json:"amount"`
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	Location     json.RawMessage `json:"location"`
	DeviceInfo   json.RawMessage `json:"deviceInfo"`
	Receipt      *string         `json:"receipt"`
}

type NewTransaction struct {
	Code         string          `json:"transactionId" validate:"required"`
	CSPID        int64           `json:"cspId" validate:"required"`
	CustomerName string          `json:"customerName" validate:"required"`
	Type         string          `json:"type" validate:"required"`
	Amount       *int64          `json:"amount" validate:"required,gte=0"`
	Status       string          `json:"status" validate:"required,oneof=completed failed pending processing"`
	Location     json.RawMessage `json:"location"`
	DeviceInfo   json.RawMessage `json:"deviceInfo"`
}

type Alert struct {
	ID          int64      `json:"id"`
	Code        string     `json:"alertId"`
	CSPID       *int64     `json:"cspId"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status"`
	ResolvedBy  *int64     `json:"resolvedBy"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
}

type NewAlert struct {
	Code        string `json:"alertId" validate:"required"`
	CSPID       *int64 `json:"cspId"`
	Description string `json:"description" validate:"required"`
	Severity    string `json:"severity" validate:"required,oneof=high medium low"`
	Status      string `json:"status" validate:"omitempty,oneof=pending resolved escalated"`
}

// AlertFilter narrows ListAlerts the same way CSPFilter narrows ListCSPs.
type AlertFilter struct {
	Status   *string
	Severity *string
	CSPID    *int64
}

type Audit struct {
	ID               int64           `json:"id"`
	CSPID            int64           `json:"cspId"`
	AuditorID        int64           `json:"auditorId"`
	ScheduledDate    time.Time       `json:"scheduledDate"`
	CompletedDate    *time.Time      `json:"completedDate"`
	Status           string          `json:"status"`
	Findings         json.RawMessage `json:"findings"`
	Images           json.RawMessage `json:"images"`
	LocationVerified bool            `json:"locationVerified"`
	FaceVerified     bool            `json:"faceVerified"`
}

type NewAudit struct {
	CSPID         int64      `json:"cspId" validate:"required"`
	AuditorID     int64      `json:"auditorId" validate:"required"`
	ScheduledDate *time.Time `json:"scheduledDate" validate:"required"`
	Status        string     `json:"status" validate:"required,oneof=scheduled completed missed priority"`
}

// sortTime is the instant audits are ordered by.
func (a Audit) sortTime() time.Time {
	if a.CompletedDate != nil {
		return *a.CompletedDate
	}
	return a.ScheduledDate
}

type Complaint struct {
	ID              int64      `json:"id"`
	CustomerName    string     `json:"customerName"`
	Contact         *string    `json:"contact"`
	CSPID           *int64     `json:"cspId"`
	Description     string     `json:"description"`
	TransactionCode *string    `json:"transactionId"`
	Status          string     `json:"status"`
	SubmittedAt     time.Time  `json:"submittedAt"`
	ResolvedAt      *time.Time `json:"resolvedAt"`
	ResolvedBy      *int64     `json:"resolvedBy"`
}

type NewComplaint struct {
	CustomerName    string  `json:"customerName" validate:"required"`
	Contact         *string `json:"contact"`
	CSPID           *int64  `json:"cspId"`
	Description     string  `json:"description" validate:"required"`
	TransactionCode *string `json:"transactionId"`
}

type CheckIn struct {
	ID                 int64           `json:"id"`
	CSPID              int64           `json:"cspId"`
	Timestamp          time.Time       `json:"timestamp"`
	Location           json.RawMessage `json:"location"`
	DeviceInfo         json.RawMessage `json:"deviceInfo"`
	FaceImageURL       *string         `json:"faceImageUrl"`
	Verified           bool            `json:"verified"`
	VerificationMethod *string         `json:"verificationMethod"`
}

type NewCheckIn struct {
	CSPID        int64           `json:"cspId" validate:"required"`
	Location     json.RawMessage `json:"location"`
	DeviceInfo   json.RawMessage `json:"deviceInfo"`
	FaceImageURL *string         `json:"faceImageUrl"`
}

// SystemStatusItem is the health row of one platform service.
type SystemStatusItem struct {
	ID          int64     `json:"id"`
	Service     string    `json:"service"`
	Status      string    `json:"status"`
	Performance int       `json:"performance"`
	LastUpdated time.Time `json:"lastUpdated"`
	Details     *string   `json:"details"`
}

// WarModeStatus is the platform-wide emergency singleton.
type WarModeStatus struct {
	ID            int64      `json:"id"`
	IsActive      bool       `json:"isActive"`
	Level         int        `json:"level"`
	ActivatedBy   *int64     `json:"activatedBy"`
	ActivatedAt   *time.Time `json:"activatedAt"`
	DeactivatedAt *time.Time `json:"deactivatedAt"`
	AffectedAreas []string   `json:"affectedAreas"`
	Instructions  []string   `json:"instructions"`
}

// UserStatusActive is the only status allowed to sign in and call
// authenticated routes.
const UserStatusActive = "active"

// Active reports whether the account may be used.
func (u *User) Active() bool { return u.Status == UserStatusActive }

// Defaults stamped on create.
const (
	defaultUserStatus      = UserStatusActive
	defaultCSPStatus       = "active"
	defaultRiskScore       = 100
	defaultAlertStatus     = "pending"
	defaultComplaintStatus = "open"
	defaultWarModeLevel    = 1
)

func (in NewUser) record(now time.Time) User {
	status := in.Status
	if status == "" {
		status = defaultUserStatus
	}
	return User{
		Username:     in.Username,
		PasswordHash: in.Password,
		FullName:     in.FullName,
		Email:        in.Email,
		Role:         in.Role,
		Status:       status,
		CreatedAt:    now,
	}
}

func (in NewCSP) record() CSP {
	return CSP{
		UserID:    in.UserID,
		Code:      in.Code,
		Address:   in.Address,
		District:  in.District,
		State:     in.State,
		RiskScore: defaultRiskScore,
		DeviceID:  clonePtr(in.DeviceID),
		Status:    defaultCSPStatus,
		Latitude:  clonePtr(in.Latitude),
		Longitude: clonePtr(in.Longitude),
	}
}

func (in NewTransaction) record(now time.Time) Transaction {
	var amount int64
	if in.Amount != nil {
		amount = *in.Amount
	}
	return Transaction{
		Code:         in.Code,
		CSPID:        in.CSPID,
		CustomerName: in.CustomerName,
		Type:         in.Type,
		Amount:       amount,
		Status:       in.Status,
		Timestamp:    now,
		Location:     normalizeRaw(in.Location),
		DeviceInfo:   normalizeRaw(in.DeviceInfo),
	}
}

func (in NewAlert) record(now time.Time) Alert {
	status := in.Status
	if status == "" {
		status = defaultAlertStatus
	}
	return Alert{
		Code:        in.Code,
		CSPID:       clonePtr(in.CSPID),
		Description: in.Description,
		Timestamp:   now,
		Severity:    in.Severity,
		Status:      status,
	}
}

func (in NewAudit) record() Audit {
	var scheduled time.Time
	if in.ScheduledDate != nil {
		scheduled = normalizeTime(*in.ScheduledDate)
	}
	return Audit{
		CSPID:         in.CSPID,
		AuditorID:     in.AuditorID,
		ScheduledDate: scheduled,
		Status:        in.Status,
	}
}

func (in NewComplaint) record(now time.Time) Complaint {
	return Complaint{
		CustomerName:    in.CustomerName,
		Contact:         clonePtr(in.Contact),
		CSPID:           clonePtr(in.CSPID),
		Description:     in.Description,
		TransactionCode: clonePtr(in.TransactionCode),
		Status:          defaultComplaintStatus,
		SubmittedAt:     now,
	}
}

func (in NewCheckIn) record(now time.Time) CheckIn {
	return CheckIn{
		CSPID:        in.CSPID,
		Timestamp:    now,
		Location:     normalizeRaw(in.Location),
		DeviceInfo:   normalizeRaw(in.DeviceInfo),
		FaceImageURL: clonePtr(in.FaceImageURL),
	}
}

func defaultWarMode() WarModeStatus {
	return WarModeStatus{Level: defaultWarModeLevel}
}

// defaultSystemStatuses is the service list every fresh store starts with.
// Operational services report a performance between 95 and 99.
func defaultSystemStatuses(now time.Time) []SystemStatusItem {
	operational := func(service string) SystemStatusItem {
		return SystemStatusItem{
			Service:     service,
			Status:      "operational",
			Performance: 95 + rand.Intn(5),
			LastUpdated: now,
		}
	}
	return []SystemStatusItem{
		operational("Fraud Engine"),
		operational("AEPS Services"),
		{Service: "mATM Services", Status: "degraded", Performance: 87, LastUpdated: now},
		operational("Facial Recognition"),
		operational("Notification System"),
	}
}

// normalizeTime drops precision the relational backends cannot keep.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func normalizeRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
