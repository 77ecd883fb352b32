// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package analysis

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/traylinx/pegcompare/internal/model"
)

func TestClassifyTrend_Thresholds(t *testing.T) {
	assert.Equal(t, model.TrendStable, classifyTrend(4.9))
	assert.Equal(t, model.TrendStable, classifyTrend(-4.9))
	assert.Equal(t, model.TrendUp, classifyTrend(5.1))
	assert.Equal(t, model.TrendDown, classifyTrend(-5.1))
}

func TestClassifySignificance_Thresholds(t *testing.T) {
	assert.Equal(t, model.SignificanceLow, classifySignificance(9.9))
	assert.Equal(t, model.SignificanceMedium, classifySignificance(10.1))
	assert.Equal(t, model.SignificanceHigh, classifySignificance(20.1))
	assert.Equal(t, model.SignificanceMedium, classifySignificance(10.0))
	assert.Equal(t, model.SignificanceHigh, classifySignificance(20.0))
}

func TestJoinRecords_MissingSideBecomesZeroWithLowDataQuality(t *testing.T) {
	n1 := []model.AggregatedPEG{{PEGName: "RACH_Success", Avg: 10, Count: 5}}
	var n []model.AggregatedPEG

	records := joinRecords(n1, n, nil, nil)
	require := assert.New(t)
	require.Len(records, 1)
	require.Equal(0.0, records[0].NValue.Avg)
	require.Equal(0, records[0].NValue.Count)
	require.Equal(model.DataQualityLow, records[0].DataQuality)
}

func TestJoinRecords_RecordCountEqualsUnionOfNamesPlusDerived(t *testing.T) {
	n1 := []model.AggregatedPEG{{PEGName: "A", Avg: 1, Count: 3}, {PEGName: "B", Avg: 2, Count: 3}}
	n := []model.AggregatedPEG{{PEGName: "B", Avg: 3, Count: 3}, {PEGName: "C", Avg: 4, Count: 3}}
	n1Derived := []model.AggregatedPEG{{PEGName: "D1", Avg: 5}}

	records := joinRecords(n1, n, n1Derived, nil)
	assert.Len(t, records, 4)

	var sawDerived bool
	for _, r := range records {
		if r.PEGName == "D1" {
			sawDerived = true
			assert.True(t, r.Derived)
		}
	}
	assert.True(t, sawDerived)
}

func TestComputeSummary_WeightedAverageChange(t *testing.T) {
	records := []model.ComparisonRecord{
		{Weight: 1, ChangePct: 10, Trend: model.TrendUp},
		{Weight: 3, ChangePct: -10, Trend: model.TrendDown},
	}
	summary := computeSummary(records)
	assert.InDelta(t, -5.0, summary.WeightedAvgChange, 1e-9)
	assert.Equal(t, 1, summary.Improved)
	assert.Equal(t, 1, summary.Declined)
}

func TestResolveIdentifiers_PrecedenceAggregatorThenFilterThenUnknown(t *testing.T) {
	ids := resolveIdentifiers(model.AggregatorIdentifiers{}, model.RequestFilters{NE: "nvgnb#1", Host: "host01"})
	assert.Equal(t, "nvgnb#1", ids.NEID)
	assert.Equal(t, "host01", ids.SWName)
	assert.Equal(t, model.UnknownIdentifier, ids.CellID)

	ids = resolveIdentifiers(model.AggregatorIdentifiers{NEID: "nvgnb#2"}, model.RequestFilters{NE: "nvgnb#1"})
	assert.Equal(t, "nvgnb#2", ids.NEID)
}

func TestProperty_RecordCountEqualsUnionSize(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("record count equals the number of distinct peg names across both windows", prop.ForAll(
		func(namesN1, namesN []string) bool {
			n1 := make([]model.AggregatedPEG, len(namesN1))
			for i, name := range namesN1 {
				n1[i] = model.AggregatedPEG{PEGName: name, Avg: 1, Count: 1}
			}
			n := make([]model.AggregatedPEG, len(namesN))
			for i, name := range namesN {
				n[i] = model.AggregatedPEG{PEGName: name, Avg: 1, Count: 1}
			}

			union := map[string]struct{}{}
			for _, name := range namesN1 {
				union[name] = struct{}{}
			}
			for _, name := range namesN {
				union[name] = struct{}{}
			}

			records := joinRecords(n1, n, nil, nil)
			return len(records) == len(union)
		},
		gen.SliceOfN(5, gen.OneConstOf("A", "B", "C")),
		gen.SliceOfN(5, gen.OneConstOf("B", "C", "D")),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
