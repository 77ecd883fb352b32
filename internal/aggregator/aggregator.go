// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package aggregator implements PEGAggregator (spec.md §4.6): groups raw
// samples by peg_name into per-window averages, and captures the
// record-level identifiers (ne_key, host_name, derived cell_id) from the
// first non-empty row before the groupwise reduction would otherwise
// drop them. Grounded on the original analyzer's PEGCalculator grouping
// logic (utils/peg_calculator.py) and its
// _extract_cell_id_from_index_name helper (services/analysis_service.py).
package aggregator

import (
	"math"
	"strings"

	"github.com/traylinx/pegcompare/internal/model"
)

// Aggregate groups raw by peg_name, computing the avg/count/rsd triple
// per group, and separately extracts the record-level identifiers from
// the first non-empty row. This is the critical correctness property
// spec.md §4.6 calls out: identifiers must be captured here, as a
// first-class step, because they do not survive the groupwise reduction.
func Aggregate(raw []model.RawSample, tag model.WindowTag) ([]model.AggregatedPEG, model.AggregatorIdentifiers) {
	ids := extractIdentifiers(raw)

	groups := make(map[string][]float64)
	order := make([]string, 0)
	for _, r := range raw {
		if _, ok := groups[r.PEGName]; !ok {
			order = append(order, r.PEGName)
		}
		groups[r.PEGName] = append(groups[r.PEGName], r.Value)
	}

	out := make([]model.AggregatedPEG, 0, len(order))
	for _, name := range order {
		values := groups[name]
		avg := mean(values)
		out = append(out, model.AggregatedPEG{
			PEGName:   name,
			WindowTag: tag,
			Avg:       avg,
			Count:     len(values),
			RSD:       rsd(values, avg),
		})
	}
	return out, ids
}

// extractIdentifiers reads ne_key/host_name/index_name from the first row
// whose fields are non-empty, deriving cell_id from index_name.
func extractIdentifiers(raw []model.RawSample) model.AggregatorIdentifiers {
	var ids model.AggregatorIdentifiers
	for _, r := range raw {
		if r.NEKey == "" && r.HostName == "" && r.IndexName == "" {
			continue
		}
		ids.NEID = r.NEKey
		ids.SWName = r.HostName
		ids.CellID = cellIDFromIndexName(r.IndexName)
		break
	}
	return ids
}

// cellIDFromIndexName splits index_name on "_" and returns the last
// segment if it is all-digit; otherwise the penultimate segment if that
// one is all-digit; otherwise empty. E.g. "PEG_420_2010" -> "2010",
// "nvgnb#10000_2010" -> "2010".
func cellIDFromIndexName(indexName string) string {
	if indexName == "" {
		return ""
	}
	parts := strings.Split(indexName, "_")
	if len(parts) >= 2 && isAllDigit(parts[len(parts)-1]) {
		return parts[len(parts)-1]
	}
	if len(parts) >= 3 && isAllDigit(parts[len(parts)-2]) {
		return parts[len(parts)-2]
	}
	return ""
}

func isAllDigit(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// rsd computes the relative standard deviation as a percentage, 0 when
// count < 2 or avg == 0, matching the original analyzer's
// _calculate_rsd.
func rsd(values []float64, avg float64) float64 {
	if len(values) < 2 || avg == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - avg
		sumSq += d * d
	}
	variance := sumSq / float64(len(values)-1)
	stdev := math.Sqrt(variance)
	return (stdev / avg) * 100
}
