// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package response

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/traylinx/pegcompare/internal/errs"
	"github.com/traylinx/pegcompare/internal/model"
)

func TestSuccess_WrapsResultWithTiming(t *testing.T) {
	startedAt := time.Now().Add(-50 * time.Millisecond)
	result := model.AnalysisResult{AnalysisID: "abc-123"}

	env := Success(result, startedAt)
	assert.Equal(t, string(model.StatusSuccess), env.Status)
	assert.Equal(t, "abc-123", env.AnalysisID)
	assert.NotNil(t, env.Result)
	assert.GreaterOrEqual(t, env.ExecutionTimeMs, int64(0))
}

func TestFailure_UsesStructuredErrorDetails(t *testing.T) {
	err := errs.New(errs.RequestInvalid, "n_minus_1 is required").WithField("n_minus_1")
	env := Failure(err, time.Now())

	assert.Equal(t, string(model.StatusError), env.Status)
	assert.Equal(t, "n_minus_1", env.ErrorDetails["field"])
	assert.Equal(t, string(errs.RequestInvalid), env.ErrorDetails["kind"])
}

func TestExitCode_MapsKindsToDocumentedCodes(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(errs.New(errs.RequestInvalid, "x")))
	assert.Equal(t, 2, ExitCode(errs.New(errs.TimeParse, "x")))
	assert.Equal(t, 3, ExitCode(errs.New(errs.StoreFailure, "x")))
	assert.Equal(t, 3, ExitCode(errs.New(errs.StoreResultTooLarge, "x")))
	assert.Equal(t, 4, ExitCode(errs.New(errs.LLMUnavailable, "x")))
	assert.Equal(t, 4, ExitCode(errs.New(errs.LLMBadResponse, "x")))
	assert.Equal(t, 1, ExitCode(errs.New(errs.Internal, "x")))
}
