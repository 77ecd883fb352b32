// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRequest = `{
  "n_minus_1": "2025-09-04_21:15~21:30",
  "n": "2025-09-05_21:15~21:30",
  "analysis_type": "enhanced",
  "db": {"host": "db.local", "port": 5432, "dbname": "peg", "user": "u", "password": "p"},
  "table": "summary",
  "columns": {"time": "datetime", "peg_name": "peg_name"},
  "filters": {"ne": "nvgnb#10000", "cellid": ["2010", "2011"], "host": "host01"},
  "selected_pegs": ["RACH_Success"],
  "peg_definitions": {"telus_RACH_Success": "a/b*100"},
  "max_prompt_tokens": 24000,
  "unexpected_field": true
}`

func TestValidate_AcceptsWellFormedRequest(t *testing.T) {
	req, err := Validate([]byte(validRequest))
	require.NoError(t, err)
	assert.Equal(t, "2025-09-04_21:15~21:30", req.NMinus1)
	assert.Equal(t, "enhanced", req.AnalysisType)
	assert.Equal(t, "summary", req.Table)
	assert.Equal(t, []string{"2010", "2011"}, req.Filters.CellID)
	assert.Equal(t, 24000, req.MaxPromptTokens)
	assert.Len(t, req.Warnings, 1)
}

func TestValidate_RejectsMissingRequiredFields(t *testing.T) {
	_, err := Validate([]byte(`{"n": "2025-09-05_21:15~21:30"}`))
	require.Error(t, err)
}

func TestValidate_RejectsUnknownAnalysisType(t *testing.T) {
	_, err := Validate([]byte(`{
		"n_minus_1": "2025-09-04_21:15~21:30",
		"n": "2025-09-05_21:15~21:30",
		"analysis_type": "bogus",
		"enable_mock": true
	}`))
	require.Error(t, err)
}

func TestValidate_RejectsUnsafeColumnIdentifier(t *testing.T) {
	_, err := Validate([]byte(`{
		"n_minus_1": "2025-09-04_21:15~21:30",
		"n": "2025-09-05_21:15~21:30",
		"enable_mock": true,
		"columns": {"time": "ts; DROP TABLE x"}
	}`))
	require.Error(t, err)
}

func TestValidate_RequiresDBUnlessMock(t *testing.T) {
	_, err := Validate([]byte(`{
		"n_minus_1": "2025-09-04_21:15~21:30",
		"n": "2025-09-05_21:15~21:30"
	}`))
	require.Error(t, err)

	req, err := Validate([]byte(`{
		"n_minus_1": "2025-09-04_21:15~21:30",
		"n": "2025-09-05_21:15~21:30",
		"enable_mock": true
	}`))
	require.NoError(t, err)
	assert.True(t, req.EnableMock)
}

func TestValidate_RejectsTooSmallMaxPromptTokens(t *testing.T) {
	_, err := Validate([]byte(`{
		"n_minus_1": "2025-09-04_21:15~21:30",
		"n": "2025-09-05_21:15~21:30",
		"enable_mock": true,
		"max_prompt_tokens": 10
	}`))
	require.Error(t, err)
}
