// Package failure carries the error taxonomy shared by every actor in the
// commit core: timeout, not_found, abort, connection, unknown.
package failure

import "fmt"

// Code names one of the stable failure categories from the error taxonomy.
type Code string

const (
	// Timeout reports that a dependent operation did not respond within its bound.
	Timeout Code = "timeout"
	// NotFound reports that a key has no committed version, or a subscriber is absent.
	NotFound Code = "not_found"
	// Abort reports a transaction that validated to abort. Definitive.
	Abort Code = "abort"
	// Connection reports a transport-level failure, retryable after reconnection.
	Connection Code = "connection"
	// Unknown reports a protocol-level invariant violation.
	Unknown Code = "unknown"
	// TxInProgress reports a tx_start on a client handle with an open transaction.
	TxInProgress Code = "tx_in_progress"
	// NotLeader reports that the contacted TM is not ready to accept commits
	// (RTM membership below MinRTMs) and the caller should be forwarded.
	NotLeader Code = "tm_not_ready"
)

// Failure is the typed error carried through every public and inter-actor
// operation in place of ad-hoc error strings.
type Failure struct {
	Code   Code
	Detail string
	// LeaderEndpoint, when set on a NotLeader failure, names a TM the caller
	// should retry against.
	LeaderEndpoint string
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Detail != "" {
		return fmt.Sprintf("%s: %s", f.Code, f.Detail)
	}
	return string(f.Code)
}

// New builds a Failure with the given code and formatted detail.
func New(code Code, format string, args ...any) *Failure {
	return &Failure{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Is supports errors.Is against a bare Code sentinel comparison by code only.
func (f *Failure) Is(target error) bool {
	other, ok := target.(*Failure)
	if !ok {
		return false
	}
	return f.Code == other.Code
}
