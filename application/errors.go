package application

import (
	"errors"
	"fmt"
)

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrDatabaseNil          = Error("database is nil")
	ErrMissingParameters    = Error("missing parameters")
	ErrDatabaseNotAvailable = Error("database not available")
	ErrInvalidPublicKey     = Error("invalid public key")
	ErrInvalidInstruction   = Error("invalid instruction data encoding")
	ErrInvocationNotFound   = Error("invocation not found")
	ErrInvalidTxHash        = Error("invalid transaction hash")

	ErrProgramNotFound              = Error("program not found")
	ErrInvalidAccountKey            = Error("invalid account key")
	ErrInstructionMissing           = Error("8 byte instruction identifier not provided")
	ErrInstructionFallbackNotFound  = Error("fallback functions are not supported")
	ErrInstructionDidNotDeserialize = Error("the program could not deserialize the given instruction")
)

// Error codes reported in receipts, numbered the way the on-chain framework numbers them.
const (
	CodeOK                           uint32 = 0
	CodeGeneric                      uint32 = 1
	CodeProgramNotFound              uint32 = 3
	CodeInvalidAccountKey            uint32 = 4
	CodeInstructionMissing           uint32 = 100
	CodeInstructionFallbackNotFound  uint32 = 101
	CodeInstructionDidNotDeserialize uint32 = 102
)

// ProgramError is a runtime failure with the code surfaced to clients.
type ProgramError struct {
	Err  error
	Code uint32
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Err, e.Code)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

func programError(err error, code uint32) *ProgramError {
	return &ProgramError{Err: err, Code: code}
}

// ErrorCode returns the code carried by err, or 0 when err is nil or not a ProgramError.
func ErrorCode(err error) uint32 {
	var perr *ProgramError
	if errors.As(err, &perr) {
		return perr.Code
	}

	return CodeOK
}
