// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package payload implements PayloadBuilder (spec.md §4.9): assembles the
// external backend payload from an AnalysisResult, using tidwall/sjson so
// optional/defaulted fields are built up incrementally without a
// null-producing struct round-trip. Grounded on the original analyzer's
// build_v2_payload (utils/backend_payload_builder.py).
package payload

import (
	"fmt"
	"math"

	"github.com/tidwall/sjson"

	"github.com/traylinx/pegcompare/internal/model"
)

const (
	posInfSentinel = 999999.0
	negInfSentinel = -999999.0
)

// Build renders result as the JSON backend payload described in spec.md
// §4.9. relVer and choiResult are passed through verbatim when non-empty.
func Build(result model.AnalysisResult, relVer string, choiResult map[string]any) ([]byte, error) {
	json := "{}"
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		json, err = sjson.Set(json, path, value)
	}

	set("ne_id", result.Identifiers.NEID)
	set("cell_id", result.Identifiers.CellID)
	set("swname", result.Identifiers.SWName)
	if relVer != "" {
		set("rel_ver", relVer)
	}

	set("analysis_period.n_minus_1_start", result.N1Window.Start.Format("2006-01-02 15:04:05"))
	set("analysis_period.n_minus_1_end", result.N1Window.End.Format("2006-01-02 15:04:05"))
	set("analysis_period.n_start", result.NWindow.Start.Format("2006-01-02 15:04:05"))
	set("analysis_period.n_end", result.NWindow.End.Format("2006-01-02 15:04:05"))

	set("analysis_id", result.AnalysisID)

	set("llm_analysis.summary", result.LLM.Summary)
	issues := result.LLM.Issues
	if issues == nil {
		issues = []string{}
	}
	set("llm_analysis.issues", issues)
	recs := result.LLM.Recommendations
	if recs == nil {
		recs = []string{}
	}
	set("llm_analysis.recommendations", recs)
	if result.LLM.Confidence != 0 {
		set("llm_analysis.confidence", sanitizeFloat(result.LLM.Confidence))
	}
	if result.LLM.ModelLabel != "" {
		set("llm_analysis.model_name", result.LLM.ModelLabel)
	}

	comparisons := make([]map[string]any, 0, len(result.Records))
	for _, r := range result.Records {
		entry := map[string]any{
			"peg_name":         r.PEGName,
			"weight":           r.Weight,
			"n1_avg":           sanitizeFloat(r.N1.Avg),
			"n_avg":            sanitizeFloat(r.NValue.Avg),
			"n1_rsd":           sanitizeFloat(r.N1.RSD),
			"n_rsd":            sanitizeFloat(r.NValue.RSD),
			"change_absolute":  sanitizeFloat(r.ChangeAbs),
			"change_percent":   sanitizeFloat(r.ChangePct),
			"trend":            string(r.Trend),
			"significance":     string(r.Significance),
			"confidence":       sanitizeFloat(r.Confidence),
			"data_quality":     string(r.DataQuality),
			"derived":          r.Derived,
		}
		if r.CellID != "" {
			entry["cell_id"] = r.CellID
		}
		comparisons = append(comparisons, entry)
	}
	set("peg_comparisons", comparisons)

	if choiResult != nil {
		set("choi_result", choiResult)
	}

	if err != nil {
		return nil, err
	}
	return []byte(json), nil
}

// sanitizeFloat maps NaN/Inf to finite JSON-safe sentinels, matching the
// original analyzer's _sanitize_float_value.
func sanitizeFloat(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return posInfSentinel
	case math.IsInf(v, -1):
		return negInfSentinel
	default:
		return v
	}
}

// ExtractIdentifier implements the scalar-identifier extraction rule from
// spec.md §4.9: if source is a slice, take its first element; if it is a
// map with a "value" or "name" key, use that; otherwise its string form.
// nil, an empty string, an empty slice, and a map with neither key yield
// fallback.
func ExtractIdentifier(source any, fallback string) string {
	switch v := source.(type) {
	case nil:
		return fallback
	case string:
		if v == "" {
			return fallback
		}
		return v
	case []string:
		if len(v) == 0 {
			return fallback
		}
		return v[0]
	case []any:
		if len(v) == 0 {
			return fallback
		}
		return ExtractIdentifier(v[0], fallback)
	case map[string]any:
		if val, ok := v["value"]; ok {
			return ExtractIdentifier(val, fallback)
		}
		if val, ok := v["name"]; ok {
			return ExtractIdentifier(val, fallback)
		}
		return fallback
	default:
		return fmt.Sprint(v)
	}
}
