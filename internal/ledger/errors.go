package ledger

import "errors"

var (
	// ErrAccountNotFound indicates a lookup by account name matched nothing.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCardNotFound indicates a lookup by set code and number matched nothing.
	ErrCardNotFound = errors.New("card not found")
	// ErrInsufficientShinedust indicates an account balance cannot cover a
	// removal tier without the forced override.
	ErrInsufficientShinedust = errors.New("insufficient shinedust")
	// ErrNoHolding indicates a removal targeted a card the account does not hold.
	ErrNoHolding = errors.New("account holds no copies of card")
)
