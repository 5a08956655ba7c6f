package repository

import "errors"

var (
	// ErrDuplicateModelName is returned when creating a strategy model whose
	// name is already taken.
	ErrDuplicateModelName = errors.New("strategy model name already exists")

	// ErrOpenPositionExists is returned when opening a trade for a model that
	// already holds an open position.
	ErrOpenPositionExists = errors.New("model already has an open trade")

	// ErrInsufficientBalance is returned when the account cannot cover the
	// requested stake.
	ErrInsufficientBalance = errors.New("insufficient paper balance")

	// ErrTradeNotOpen is returned when a settlement targets a trade that is no
	// longer open. It marks a prevented double-settlement, not data loss.
	ErrTradeNotOpen = errors.New("trade is not open")

	// ErrAccountMissing is returned when a trade references a model without a
	// paper account. Accounts are created with the model, so this indicates a
	// corrupted seed.
	ErrAccountMissing = errors.New("paper account not found for model")
)
