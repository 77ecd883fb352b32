// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package response implements ResponseFormatter (spec.md §4.11): wraps an
// AnalysisResult or an error as the standard success/error envelope, and
// maps error kinds to CLI exit codes.
package response

import (
	"time"

	"github.com/traylinx/pegcompare/internal/errs"
	"github.com/traylinx/pegcompare/internal/model"
)

// Envelope is the top-level JSON response shape.
type Envelope struct {
	Status          string         `json:"status"`
	AnalysisID      string         `json:"analysis_id,omitempty"`
	Timestamp       string         `json:"timestamp"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Result          *model.AnalysisResult `json:"result,omitempty"`
	ErrorDetails    map[string]any `json:"error_details,omitempty"`
}

// Success builds the success envelope for result, timed from startedAt.
func Success(result model.AnalysisResult, startedAt time.Time) Envelope {
	return Envelope{
		Status:          string(model.StatusSuccess),
		AnalysisID:      result.AnalysisID,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ExecutionTimeMs: time.Since(startedAt).Milliseconds(),
		Result:          &result,
	}
}

// Failure builds the error envelope for err.
func Failure(err error, startedAt time.Time) Envelope {
	details := map[string]any{"kind": string(errs.KindOf(err)), "message": err.Error()}
	if e, ok := err.(*errs.Error); ok {
		details = e.AsDetails()
	}
	return Envelope{
		Status:          string(model.StatusError),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ExecutionTimeMs: time.Since(startedAt).Milliseconds(),
		ErrorDetails:    details,
	}
}

// ExitCode maps an error to the CLI exit code spec.md §4.11 assigns:
// 0 success, 2 validation error, 3 store error, 4 LLM error, 1 other.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch errs.KindOf(err) {
	case errs.RequestInvalid, errs.TimeParse:
		return 2
	case errs.StoreFailure, errs.StoreResultTooLarge:
		return 3
	case errs.LLMUnavailable, errs.LLMBadResponse:
		return 4
	default:
		return 1
	}
}
