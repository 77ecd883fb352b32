// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package derived

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/traylinx/pegcompare/internal/model"
)

func TestEvaluate_ComputesDerivedValueFromBoundAverages(t *testing.T) {
	aggregated := []model.AggregatedPEG{
		{PEGName: "Random_access_preamble_count", Avg: 100},
		{PEGName: "Random_access_response", Avg: 80},
	}
	defs := []model.DerivedFormula{
		{Name: "telus_RACH_Success", Expression: "Random_access_preamble_count/Random_access_response*100"},
	}

	var warnings []string
	out := Evaluate(aggregated, model.N, defs, func(msg string) { warnings = append(warnings, msg) })

	require := assert.New(t)
	require.Len(out, 1)
	require.Equal("telus_RACH_Success", out[0].PEGName)
	require.InDelta(125.0, out[0].Avg, 1e-9)
	require.Equal(model.N, out[0].WindowTag)
	require.Empty(warnings)
}

func TestEvaluate_OmitsFormulaReferencingMissingBinding(t *testing.T) {
	aggregated := []model.AggregatedPEG{{PEGName: "A", Avg: 1}}
	defs := []model.DerivedFormula{
		{Name: "bad", Expression: "A + B"},
		{Name: "good", Expression: "A * 2"},
	}

	var warnings []string
	out := Evaluate(aggregated, model.N, defs, func(msg string) { warnings = append(warnings, msg) })

	require := assert.New(t)
	require.Len(out, 1)
	require.Equal("good", out[0].PEGName)
	require.NotEmpty(warnings)
}

func TestEvaluate_DivisionByZeroWarnsButStillSucceeds(t *testing.T) {
	aggregated := []model.AggregatedPEG{
		{PEGName: "numerator", Avg: 10},
		{PEGName: "denominator", Avg: 0},
	}
	defs := []model.DerivedFormula{
		{Name: "ratio", Expression: "numerator/denominator"},
	}

	var warnings []string
	out := Evaluate(aggregated, model.NMinus1, defs, func(msg string) { warnings = append(warnings, msg) })

	require := assert.New(t)
	require.Len(out, 1)
	require.Equal(0.0, out[0].Avg)
	require.NotEmpty(warnings)
}
