// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package errs defines the tagged error variants shared by every boundary
// operation in the PEG comparison pipeline. Every kind carries a
// human-readable message and an optional details map, mirroring the
// original analyzer's AnalysisError hierarchy (one exception class per
// kind, all exposing to_dict()).
package errs

import (
	"errors"
	"fmt"
)

// Kind tags an Error with one of the variants spec.md §4.12 enumerates.
type Kind string

const (
	TimeParse         Kind = "TimeParse"
	FormulaSyntax      Kind = "FormulaSyntax"
	FormulaUnknownRef  Kind = "FormulaUnknownRef"
	TemplateLoad       Kind = "TemplateLoad"
	TemplateVarMissing Kind = "TemplateVarMissing"
	StoreFailure       Kind = "StoreFailure"
	StoreResultTooLarge Kind = "StoreResultTooLarge"
	LLMUnavailable     Kind = "LLMUnavailable"
	LLMBadResponse     Kind = "LLMBadResponse"
	RequestInvalid     Kind = "RequestInvalid"
	Internal           Kind = "Internal"
)

// Retryable reports whether this kind is recoverable at its natural
// boundary, per spec.md §4.12: StoreFailure is retried inside PEGStore,
// LLMUnavailable is retried/failed-over inside LLMClient. All other kinds
// propagate to the caller on first occurrence.
func (k Kind) Retryable() bool {
	return k == StoreFailure || k == LLMUnavailable
}

// Error is the single concrete error type used across the pipeline.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	Hint    string
	Details map[string]any
	cause   error
}

// New constructs an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithField attaches the offending request field name.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithHint attaches a human-readable remediation hint.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithDetails attaches structured details for logging.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithCause records the wrapped underlying error for errors.Unwrap.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, errs.New(errs.StoreFailure, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// AsDetails renders the error as a JSON-ready map for response envelopes.
func (e *Error) AsDetails() map[string]any {
	m := map[string]any{
		"kind":    string(e.Kind),
		"message": e.Message,
	}
	if e.Field != "" {
		m["field"] = e.Field
	}
	if e.Hint != "" {
		m["hint"] = e.Hint
	}
	if len(e.Details) > 0 {
		m["details"] = e.Details
	}
	return m
}
