// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aggregator

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/traylinx/pegcompare/internal/model"
)

func sample(peg string, value float64, ne, host, index string) model.RawSample {
	return model.RawSample{
		Timestamp: time.Now(),
		PEGName:   peg,
		Value:     value,
		NEKey:     ne,
		HostName:  host,
		IndexName: index,
	}
}

func TestAggregate_GroupsByPEGNameAndComputesAverage(t *testing.T) {
	raw := []model.RawSample{
		sample("RACH_Success", 10, "nvgnb#10000", "host01", "PEG_420_2010"),
		sample("RACH_Success", 20, "nvgnb#10000", "host01", "PEG_420_2010"),
		sample("RACH_Attempt", 5, "nvgnb#10000", "host01", "PEG_420_2010"),
	}

	agg, ids := Aggregate(raw, model.N)

	byName := map[string]model.AggregatedPEG{}
	for _, a := range agg {
		byName[a.PEGName] = a
	}

	assert.Equal(t, 15.0, byName["RACH_Success"].Avg)
	assert.Equal(t, 2, byName["RACH_Success"].Count)
	assert.Equal(t, 1, byName["RACH_Attempt"].Count)
	assert.Equal(t, "nvgnb#10000", ids.NEID)
	assert.Equal(t, "host01", ids.SWName)
	assert.Equal(t, "2010", ids.CellID)
}

func TestAggregate_PreservesIdentifiersFromFirstNonEmptyRow(t *testing.T) {
	raw := []model.RawSample{
		sample("RACH_Success", 10, "", "", ""),
		sample("RACH_Success", 20, "nvgnb#20000", "host02", "PEG_1100"),
		sample("RACH_Success", 30, "nvgnb#30000", "host03", "PEG_99999"),
	}

	_, ids := Aggregate(raw, model.N)
	assert.Equal(t, "nvgnb#20000", ids.NEID)
	assert.Equal(t, "host02", ids.SWName)
	assert.Equal(t, "1100", ids.CellID)
}

func TestCellIDFromIndexName(t *testing.T) {
	cases := []struct {
		indexName string
		want      string
	}{
		{"PEG_420_1100", "1100"},
		{"nvgnb#10000_2010", "2010"},
		{"PEG_abc_2010", "2010"},
		{"PEG_abc_def", ""},
		{"PEG", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cellIDFromIndexName(tc.indexName), "index_name=%q", tc.indexName)
	}
}

func TestProperty_RSDIsZeroForSingleSampleOrZeroMean(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rsd is 0 when count < 2", prop.ForAll(
		func(v float64) bool {
			return rsd([]float64{v}, v) == 0
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("rsd is 0 when mean is 0", prop.ForAll(
		func(a, b float64) bool {
			values := []float64{a, b}
			return rsd(values, 0) == 0
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
