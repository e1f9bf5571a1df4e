package market

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active, contact the admin team")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotFound           = errors.New("not found")
	ErrProductNotFound    = fmt.Errorf("product %w", ErrNotFound)
	ErrInsufficientStock  = errors.New("requested quantity exceeds available stock")

	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidRole       = errors.New("invalid role")
	ErrRoleMismatch      = errors.New("user has the wrong role for this operation")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidTransition = errors.New("invalid order status transition")
)
