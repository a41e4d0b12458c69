package model

import "time"

// BookingStatus enumerates the states of a fridge booking.  Token-charged
// rentals skip this lifecycle entirely; only cash-settled fridge bookings
// wait for agent approval.
type BookingStatus string

const (
    BookingPending  BookingStatus = "PENDING"
    BookingApproved BookingStatus = "APPROVED"
    BookingRejected BookingStatus = "REJECTED"
)

// Valid reports whether the booking status is one of the closed set.
func (s BookingStatus) Valid() bool {
    switch s {
    case BookingPending, BookingApproved, BookingRejected:
        return true
    }
    return false
}

// Rental represents a row in the `rentals` table.  A nil ReturnDate marks
// the rental as active.  Tokens records the amount debited when the
// rental was opened (zero for fridge bookings, which settle in cash).
// StartDate/EndDate are only set for fridge bookings.
type Rental struct {
    ID         uint64         `json:"id"`
    UserID     uint64         `json:"user_id"`
    AssetID    uint64         `json:"asset_id"`
    Tokens     int64          `json:"tokens"`
    RentalDate time.Time      `json:"rental_date"`
    ReturnDate *time.Time     `json:"return_date"`
    StartDate  *time.Time     `json:"start_date,omitempty"`
    EndDate    *time.Time     `json:"end_date,omitempty"`
    Status     *BookingStatus `json:"status,omitempty"`
}
