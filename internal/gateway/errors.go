package gateway

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind partitions every error leaving the gateway into a closed set, so
// callers classify failures with a total switch instead of probing error
// strings themselves.
type Kind int

const (
	// KindTransport covers everything that is not a contract revert:
	// RPC failures, rejected signatures, timeouts, disconnects.
	KindTransport Kind = iota
	// KindRevert means the chain executed the call and reverted it.
	KindRevert
)

const revertMarker = "execution reverted"

// CallError is the only error type produced by the gateway.
type CallError struct {
	Kind   Kind
	Reason string // revert reason with the boilerplate prefix stripped
	Err    error
}

func (e *CallError) Error() string {
	if e.Kind == KindRevert {
		return fmt.Sprintf("contract reverted: %s", e.Reason)
	}
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Classify wraps an error coming off the RPC client into a CallError.
// A message carrying the "execution reverted" signature becomes a
// KindRevert with the prefix stripped; everything else is transport.
func Classify(err error) *CallError {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	msg := err.Error()
	if idx := strings.Index(msg, revertMarker); idx >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx+len(revertMarker):], ":"))
		return &CallError{Kind: KindRevert, Reason: reason, Err: err}
	}
	return &CallError{Kind: KindTransport, Err: err}
}
