package emeeprom

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Status
// --------------------------------------------------------------------------

// Status is the outcome of an engine operation.
type Status uint8

const (
	StatusSuccess           Status = iota // operation completed
	StatusBadParam                        // caller misuse: size, range or missing store
	StatusBadData                         // malformed configuration
	StatusBadChecksum                     // a row could not be validated and no fallback existed
	StatusRedundantCopyUsed               // data is correct but came from the redundant copy
	StatusWriteFail                       // a program or erase failed or timed out
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusBadParam:
		return "BadParam"
	case StatusBadData:
		return "BadData"
	case StatusBadChecksum:
		return "BadChecksum"
	case StatusRedundantCopyUsed:
		return "RedundantCopyUsed"
	case StatusWriteFail:
		return "WriteFail"
	default:
		return "Unknown"
	}
}

// severity orders statuses for aggregation across rows.
func (s Status) severity() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusRedundantCopyUsed:
		return 1
	case StatusBadChecksum:
		return 2
	case StatusWriteFail:
		return 3
	default:
		return 4
	}
}

// Worse returns the more severe of s and o.
// The order is WriteFail > BadChecksum > RedundantCopyUsed > Success.
func (s Status) Worse(o Status) Status {
	if o.severity() > s.severity() {
		return o
	}
	return s
}

// --------------------------------------------------------------------------
// Error
// --------------------------------------------------------------------------

// Error is the error type returned by the engine.
type Error struct {
	Status Status
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("emeeprom: %s", e.Status)
	}
	return fmt.Sprintf("emeeprom: %s: %s", e.Status, e.Msg)
}

// Is matches any *Error with the same status, so errors.Is(err, ErrBadChecksum) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Status == e.Status
}

var (
	ErrBadParam          = &Error{Status: StatusBadParam}
	ErrBadData           = &Error{Status: StatusBadData}
	ErrBadChecksum       = &Error{Status: StatusBadChecksum}
	ErrRedundantCopyUsed = &Error{Status: StatusRedundantCopyUsed}
	ErrWriteFail         = &Error{Status: StatusWriteFail}
)

func newError(s Status, format string, args ...interface{}) *Error {
	return &Error{Status: s, Msg: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the status from an error returned by the engine.
// nil maps to StatusSuccess, errors from other packages to StatusWriteFail.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusWriteFail
}

// outcome aggregates the statuses of the rows touched by one operation and keeps
// the message of the most severe one.
type outcome struct {
	status Status
	msg    string
}

func (o *outcome) note(s Status, format string, args ...interface{}) {
	if s.severity() > o.status.severity() {
		o.status = s
		o.msg = fmt.Sprintf(format, args...)
	}
}

func (o *outcome) err() error {
	if o.status == StatusSuccess {
		return nil
	}
	return &Error{Status: o.status, Msg: o.msg}
}
