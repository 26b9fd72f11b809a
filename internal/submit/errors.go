package submit

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoTransaction is returned by Submit before any transaction was set.
	ErrNoTransaction = errors.New("no transaction to submit")

	// ErrExecutionFailed reports a transaction that was included but reverted.
	ErrExecutionFailed = errors.New("transaction execution failed")
)

// SignerMismatchError is returned when the wallet is disconnected or
// connected to an account other than the intended sender.
type SignerMismatchError struct {
	Sender    common.Address
	Connected *common.Address
}

func (e *SignerMismatchError) Error() string {
	if e.Connected == nil {
		return fmt.Sprintf("wallet not found: no wallet connected for %s", e.Sender.Hex())
	}
	return fmt.Sprintf("wallet not found: connected account %s is not sender %s", e.Connected.Hex(), e.Sender.Hex())
}

// UserMessage implements common.UserFacingError.
func (e *SignerMismatchError) UserMessage() string {
	return "Wallet not found"
}

// ShouldSilenceUsage implements common.SilenceUsageError.
func (e *SignerMismatchError) ShouldSilenceUsage() bool {
	return true
}

// ErrSignerMismatch matches any SignerMismatchError with errors.Is.
var ErrSignerMismatch = &SignerMismatchError{}

// Is reports whether target is a SignerMismatchError.
func (e *SignerMismatchError) Is(target error) bool {
	_, ok := target.(*SignerMismatchError)
	return ok
}

// SubmissionError wraps a failure of the signer or the chain while sending.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ShouldSilenceUsage implements common.SilenceUsageError.
func (e *SubmissionError) ShouldSilenceUsage() bool {
	return true
}
