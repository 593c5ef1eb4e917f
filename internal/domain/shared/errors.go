package shared

import (
	"errors"
	"fmt"
)

// Machine-readable failure codes. These are part of the API contract and
// travel unchanged through handlers, logs and the outbox.
const (
	CodeValidation              = "ERR_VALIDATION"
	CodePermissionDenied        = "ERR_PERMISSION_DENIED"
	CodeInvalidState            = "ERR_INVALID_STATE"
	CodeNotFound                = "ERR_NOT_FOUND"
	CodeBalanceFail             = "ERR_BALANCE_FAIL"
	CodeItemMismatch            = "ERR_ITEM_MISMATCH"
	CodeInventoryEffectMismatch = "ERR_INVENTORY_EFFECT_MISMATCH"
	CodeMoveQtyExceeds          = "ERR_MOVE_QTY_EXCEEDS"
	CodeSignatureInvalid        = "ERR_SIGNATURE_INVALID"
	CodeReplayMutationID        = "ERR_REPLAY_MUTATION_ID"
	CodeLamportRewind           = "ERR_LAMPORT_REWIND"
	CodePostingsMissing         = "ERR_POSTINGS_MISSING"
	CodeLineImmutable           = "ERR_LINE_IMMUTABLE"
	CodeChainBroken             = "ERR_CHAIN_BROKEN"
	CodeUnavailable             = "ERR_UNAVAILABLE"
	CodeInternal                = "ERR_INTERNAL"
)

// EngineError carries a stable code alongside a human-readable message
type EngineError struct {
	Code    string
	Message string
}

func (e *EngineError) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches any EngineError with the same code, so callers can use
// errors.Is against sentinel values built with the constructors below.
func (e *EngineError) Is(target error) bool {
	var other *EngineError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// CodeOf extracts the machine code from err, or CodeInternal when err
// is not an EngineError.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func newError(code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) *EngineError {
	return newError(CodeValidation, format, args...)
}

func NewPermissionDenied(format string, args ...any) *EngineError {
	return newError(CodePermissionDenied, format, args...)
}

func NewInvalidState(format string, args ...any) *EngineError {
	return newError(CodeInvalidState, format, args...)
}

func NewNotFound(format string, args ...any) *EngineError {
	return newError(CodeNotFound, format, args...)
}

func NewBalanceFail(format string, args ...any) *EngineError {
	return newError(CodeBalanceFail, format, args...)
}

func NewItemMismatch(format string, args ...any) *EngineError {
	return newError(CodeItemMismatch, format, args...)
}

func NewInventoryEffectMismatch(format string, args ...any) *EngineError {
	return newError(CodeInventoryEffectMismatch, format, args...)
}

func NewMoveQtyExceeds(format string, args ...any) *EngineError {
	return newError(CodeMoveQtyExceeds, format, args...)
}

func NewSignatureInvalid(format string, args ...any) *EngineError {
	return newError(CodeSignatureInvalid, format, args...)
}

func NewReplayMutationID(format string, args ...any) *EngineError {
	return newError(CodeReplayMutationID, format, args...)
}

func NewLamportRewind(format string, args ...any) *EngineError {
	return newError(CodeLamportRewind, format, args...)
}

func NewPostingsMissing(format string, args ...any) *EngineError {
	return newError(CodePostingsMissing, format, args...)
}

func NewLineImmutable(format string, args ...any) *EngineError {
	return newError(CodeLineImmutable, format, args...)
}

func NewChainBroken(format string, args ...any) *EngineError {
	return newError(CodeChainBroken, format, args...)
}

func NewUnavailable(format string, args ...any) *EngineError {
	return newError(CodeUnavailable, format, args...)
}
