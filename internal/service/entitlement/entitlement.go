package entitlement

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Status is the persisted state of a license or trial.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
	StatusConverted Status = "converted"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusSuspended, StatusRevoked, StatusConverted, StatusCancelled:
		return true
	}
	return false
}

// Band is the informational expiry classification shown next to an entitlement.
type Band string

const (
	BandExpired      Band = "expired"
	BandExpiresToday Band = "expires_today"
	BandCritical     Band = "critical"
	BandWarning      Band = "warning"
	BandHealthy      Band = "healthy"
)

var (
	// ErrInvalidArgument is returned for out-of-range caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState is returned when a transition is not legal from the stored status.
	ErrInvalidState = errors.New("invalid state")
)

// Record is the subset of a license or trial the lifecycle rules operate on.
type Record struct {
	ContactID    string    `json:"contact_id"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	CancelReason string    `json:"cancel_reason,omitempty"`
}

// Evaluation is the read-time view of a record.
type Evaluation struct {
	Stored          Status `json:"stored_status"`
	Effective       Status `json:"effective_status"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Band            Band   `json:"band,omitempty"`
	Label           string `json:"label,omitempty"`
}

// DaysUntil returns floor((expiresAt - now) / 24h).
func DaysUntil(expiresAt, now time.Time) int {
	return int(math.Floor(float64(expiresAt.Sub(now)) / float64(day)))
}

// EffectiveStatus overrides an active status with expired once expiresAt has passed.
func EffectiveStatus(r Record, now time.Time) Status {
	if r.Status == StatusActive && r.ExpiresAt.Before(now) {
		return StatusExpired
	}
	return r.Status
}

// Evaluate derives the display status and expiry band for r at now. r is not modified.
func Evaluate(r Record, now time.Time) Evaluation {
	days := DaysUntil(r.ExpiresAt, now)
	eval := Evaluation{
		Stored:          r.Status,
		Effective:       EffectiveStatus(r, now),
		DaysUntilExpiry: days,
	}
	if r.Status != StatusActive && r.Status != StatusExpired {
		return eval
	}
	eval.Band = bandFor(days)
	eval.Label = labelFor(days)
	return eval
}

func bandFor(days int) Band {
	switch {
	case days < 0:
		return BandExpired
	case days == 0:
		return BandExpiresToday
	case days <= 3:
		return BandCritical
	case days <= 7:
		return BandWarning
	default:
		return BandHealthy
	}
}

func labelFor(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("expired %s ago", pluralDays(-days))
	case days == 0:
		return "expires today"
	default:
		return fmt.Sprintf("expires in %s", pluralDays(days))
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// RemainingDays is DaysUntil clamped at zero.
func RemainingDays(r Record, now time.Time) int {
	days := DaysUntil(r.ExpiresAt, now)
	if days < 0 {
		return 0
	}
	return days
}

// Extend pushes ExpiresAt forward by days. The stored status gates the call, so an active record
// that is already past its expiry may still be extended.
func Extend(r Record, days int) (Record, error) {
	if days <= 0 {
		return r, fmt.Errorf("%w: extension days must be positive, got %d", ErrInvalidArgument, days)
	}
	if r.Status != StatusActive {
		return r, fmt.Errorf("%w: cannot extend %s entitlement", ErrInvalidState, r.Status)
	}
	r.ExpiresAt = r.ExpiresAt.Add(time.Duration(days) * day)
	return r, nil
}

// Transfer reassigns the owning contact. ExpiresAt and Status are kept; the remaining whole days
// are returned for display.
func Transfer(r Record, newContactID string, now time.Time) (Record, int, error) {
	newContactID = strings.TrimSpace(newContactID)
	if newContactID == "" {
		return r, 0, fmt.Errorf("%w: new contact id is required", ErrInvalidArgument)
	}
	r.ContactID = newContactID
	return r, RemainingDays(r, now), nil
}

// Convert marks an active trial as converted.
func Convert(r Record) (Record, error) {
	if r.Status != StatusActive {
		return r, fmt.Errorf("%w: cannot convert %s entitlement", ErrInvalidState, r.Status)
	}
	r.Status = StatusConverted
	return r, nil
}

// Cancel marks an active record as cancelled and keeps the free-text reason.
func Cancel(r Record, reason string) (Record, error) {
	if r.Status != StatusActive {
		return r, fmt.Errorf("%w: cannot cancel %s entitlement", ErrInvalidState, r.Status)
	}
	r.Status = StatusCancelled
	r.CancelReason = strings.TrimSpace(reason)
	return r, nil
}

// CanExtendTrial reports whether a trial is close enough to expiry to offer an extension.
func CanExtendTrial(r Record, now time.Time) bool {
	return EffectiveStatus(r, now) == StatusActive && DaysUntil(r.ExpiresAt, now) <= 3
}

// ProgressPercent reports how much of [CreatedAt, ExpiresAt] has elapsed, clamped to 0..100.
func ProgressPercent(r Record, now time.Time) int {
	total := r.ExpiresAt.Sub(r.CreatedAt)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(r.CreatedAt)
	pct := int(math.Round(float64(elapsed) / float64(total) * 100))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
