package ledger

import "errors"

var (
	// ErrInsufficientBalance is returned when a transfer debit exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOverflow is returned when a result would exceed the Amount range.
	// The failing call leaves all state unchanged.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrUnderflow is returned by Amount.Sub when the result would be negative.
	ErrUnderflow = errors.New("arithmetic underflow")

	// ErrZeroAmount is returned when a transfer moves nothing.
	ErrZeroAmount = errors.New("amount must be greater than zero")

	// ErrSupplyCapExceeded is returned by Mint when the supply cap is enforced
	// and the mint would push circulating supply above it.
	ErrSupplyCapExceeded = errors.New("mint exceeds total supply cap")

	// ErrMemoTooLong is returned when a transfer memo exceeds MaxMemoLen.
	ErrMemoTooLong = errors.New("memo too long")

	// ErrInvalidAccount is returned for malformed account identifiers.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrChainBroken is returned by Verify when the hash chain is inconsistent.
	ErrChainBroken = errors.New("transaction log hash chain broken")
)
