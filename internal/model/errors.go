package model

import (
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// SourceError is one Source's fetch failing. The cycle continues with zero
// postings from that source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// SignalError is a forum (or the whole scam provider) failing. The posting is
// kept with an Unknown scam status.
type SignalError struct {
	Forum string
	Err   error
}

func (e *SignalError) Error() string {
	if e.Forum == "" {
		return fmt.Sprintf("scam signal: %v", e.Err)
	}
	return fmt.Sprintf("scam signal %s: %v", e.Forum, e.Err)
}

func (e *SignalError) Unwrap() error { return e.Err }

// PersistenceError is a Store load or save failing. It fails the cycle.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CycleError is any other failure that aborted a cycle.
type CycleError struct {
	Phase string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle failed in %s: %v", e.Phase, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
