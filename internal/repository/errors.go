// Package repository defines the data access layer and the sentinel
// error values shared across repositories.  The sentinels let handlers
// translate store-level failures into precise HTTP statuses instead of
// collapsing everything into a generic 500; missing rows surface as
// sql.ErrNoRows from the lookup itself.
package repository

import "errors"

// ErrConflict is returned when an operation violates a state-machine or
// uniqueness rule, such as renting an already rented asset, returning a
// rental twice, or advancing a purchase out of order.
var ErrConflict = errors.New("conflict")

// ErrEmailExists and ErrPhoneExists refine duplicate-key failures on the
// users table so registration can report which field collided.
var (
	ErrEmailExists = errors.New("email already exists")
	ErrPhoneExists = errors.New("phone already exists")
)
