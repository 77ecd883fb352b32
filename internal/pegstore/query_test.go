// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pegstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/pegcompare/internal/model"
)

func TestColumnMap_Resolve_DefaultsMissingEntriesToLogicalName(t *testing.T) {
	cm := ColumnMap{
		"timestamp": "ts", "peg_name": "peg_name", "value": "value",
		"ne_key": "ne", "host_name": "host", "index_name": "idx", "cell_id": "cellid",
	}
	resolved, err := cm.resolve("summary")
	require.NoError(t, err)
	assert.Equal(t, "cellid", resolved["cell_id"])

	delete(cm, "cell_id")
	resolved, err = cm.resolve("summary")
	require.NoError(t, err)
	assert.Equal(t, "cell_id", resolved["cell_id"], "a missing override falls back to the logical column name")
}

func TestColumnMap_Resolve_RejectsUnsafeColumnOverride(t *testing.T) {
	cm := ColumnMap{
		"timestamp": "ts", "peg_name": "peg_name", "value": "value",
		"ne_key": "ne", "host_name": "host", "index_name": "idx",
		"cell_id": "cellid; DROP TABLE summary",
	}
	_, err := cm.resolve("summary")
	require.Error(t, err)
}

func TestBuildQuery_OmitsEmptyInLists(t *testing.T) {
	cols := map[string]string{
		"timestamp": "ts", "peg_name": "peg_name", "value": "value",
		"ne_key": "ne", "host_name": "host", "index_name": "idx", "cell_id": "cellid",
	}
	window := model.TimeWindow{Start: time.Unix(0, 0), End: time.Unix(100, 0)}

	query, args := buildQuery("summary", cols, window, model.Filter{}, 1000)
	assert.NotContains(t, query, "IN (")
	assert.Len(t, args, 2)
}

func TestBuildQuery_PreservesWhereClauseOrder(t *testing.T) {
	cols := map[string]string{
		"timestamp": "ts", "peg_name": "peg_name", "value": "value",
		"ne_key": "ne", "host_name": "host", "index_name": "idx", "cell_id": "cellid",
	}
	window := model.TimeWindow{Start: time.Unix(0, 0), End: time.Unix(100, 0)}
	filters := model.Filter{
		NE:       "nvgnb#10000",
		CellIDs:  []string{"2010", "2011"},
		PEGNames: []string{"RACH_Success"},
		Host:     "host01",
	}

	query, args := buildQuery("summary", cols, window, filters, 1000)

	neIdx := indexOf(query, "ne = ")
	cellIdx := indexOf(query, "cellid IN")
	pegIdx := indexOf(query, "peg_name IN")
	hostIdx := indexOf(query, "host = ")

	assert.True(t, neIdx < cellIdx, "ne_key predicate must precede cell_id predicate")
	assert.True(t, cellIdx < pegIdx, "cell_id predicate must precede peg_name predicate")
	assert.True(t, pegIdx < hostIdx, "peg_name predicate must precede host predicate")
	assert.Len(t, args, 2+1+2+1+1)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
