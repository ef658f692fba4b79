package entities

import "time"

// ReservationStatus represents the lifecycle state of a reservation.
// Completed, failed and expired are terminal: a new claim on the same
// (unit, scope) key creates a fresh row rather than reviving an old one.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationFailed    ReservationStatus = "failed"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation is a time-bounded exclusive claim on a (unit, scope) pair.
// At most one active reservation exists per pair at any instant; rows are
// never deleted so the table doubles as an audit trail.
type Reservation struct {
	ID         string            `json:"id"`
	HolderID   string            `json:"holder_id"`
	UnitID     string            `json:"unit_id"`
	Scope      string            `json:"scope"`
	Status     ReservationStatus `json:"status"`
	ReservedAt time.Time         `json:"reserved_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	ReleasedAt *time.Time        `json:"released_at,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}
