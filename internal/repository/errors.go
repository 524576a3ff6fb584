package repository

import (
	"errors"

	"idstation-backend/internal/db"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrStationMismatch is returned when a record exists but belongs to another
// station. Handlers present it as a plain not-found so station boundaries
// stay hidden from callers, but internal logic can tell the two apart.
var ErrStationMismatch = errors.New("record belongs to another station")

// ErrCitizenNotApproved guards order creation. The message is the
// caller-visible precondition text.
var ErrCitizenNotApproved = errors.New("Only approved citizens can create orders")

// ErrCitizenHasOrders blocks deleting a citizen that still has orders.
var ErrCitizenHasOrders = errors.New("citizen still has orders")

// ErrOrderNotPending is returned when deleting an order that already moved
// past PENDING.
var ErrOrderNotPending = errors.New("only pending orders can be deleted")

// ErrNotOrderOwner is returned when a registrar deletes an order created by
// someone else.
var ErrNotOrderOwner = errors.New("order was created by another registrar")

// IsDuplicate detects unique constraint violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}
