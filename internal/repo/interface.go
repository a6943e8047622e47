package repo

import (
	"context"
	"errors"
	"io/fs"
)

var (
	// ErrConflict reports a uniqueness violation (username, codes, service).
	ErrConflict = errors.New("unique constraint violated")
	// ErrInvalidReference reports a foreign key that names no existing row.
	ErrInvalidReference = errors.New("referenced row does not exist")
)

// NoLimit asks a listing for every matching row.
const NoLimit = -1

// Repository defines the interface for data persistence.
//
// Lookups and updates of a row that does not exist return (nil, nil).
// Listings are newest first and return at most limit rows; NoLimit returns
// every matching row.
type Repository interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error
	Seed(ctx context.Context) error

	// Users
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, in NewUser) (*User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error)

	// CSPs
	GetCSP(ctx context.Context, id int64) (*CSP, error)
	GetCSPByUserID(ctx context.Context, userID int64) (*CSP, error)
	CreateCSP(ctx context.Context, in NewCSP) (*CSP, error)
	UpdateCSP(ctx context.Context, id int64, patch CSPPatch) (*CSP, error)
	ListCSPs(ctx context.Context, filter CSPFilter) ([]CSP, error)

	// Transactions
	CreateTransaction(ctx context.Context, in NewTransaction) (*Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	ListTransactionsByCSP(ctx context.Context, cspID int64, limit int) ([]Transaction, error)

	// Alerts
	CreateAlert(ctx context.Context, in NewAlert) (*Alert, error)
	GetAlert(ctx context.Context, id int64) (*Alert, error)
	ListAlertsByCSP(ctx context.Context, cspID int64, limit int) ([]Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter, limit int) ([]Alert, error)
	UpdateAlert(ctx context.Context, id int64, patch AlertPatch) (*Alert, error)

	// Audits
	CreateAudit(ctx context.Context, in NewAudit) (*Audit, error)
	GetAudit(ctx context.Context, id int64) (*Audit, error)
	ListAuditsByCSP(ctx context.Context, cspID int64, limit int) ([]Audit, error)
	ListAuditsByAuditor(ctx context.Context, auditorID int64, limit int) ([]Audit, error)
	UpdateAudit(ctx context.Context, id int64, patch AuditPatch) (*Audit, error)

	// Complaints
	CreateComplaint(ctx context.Context, in NewComplaint) (*Complaint, error)
	GetComplaint(ctx context.Context, id int64) (*Complaint, error)
	ListComplaintsByCSP(ctx context.Context, cspID int64, limit int) ([]Complaint, error)
	UpdateComplaint(ctx context.Context, id int64, patch ComplaintPatch) (*Complaint, error)

	// Check-ins
	CreateCheckIn(ctx context.Context, in NewCheckIn) (*CheckIn, error)
	ListCheckInsByCSP(ctx context.Context, cspID int64, limit int) ([]CheckIn, error)
	GetLatestCheckInByCSP(ctx context.Context, cspID int64) (*CheckIn, error)

	// System status
	ListSystemStatus(ctx context.Context) ([]SystemStatusItem, error)
	GetSystemStatus(ctx context.Context, service string) (*SystemStatusItem, error)
	UpdateSystemStatus(ctx context.Context, service string, patch SystemStatusPatch) (*SystemStatusItem, error)

	// War mode
	GetWarMode(ctx context.Context) (*WarModeStatus, error)
	UpdateWarMode(ctx context.Context, patch WarModePatch) (*WarModeStatus, error)
}

var (
	_ Repository = (*Memory)(nil)
	_ Repository = (*SQLStore)(nil)
	_ Repository = (*Cached)(nil)
)
