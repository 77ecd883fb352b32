// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package analysis implements AnalysisAssembler (spec.md §4.8): the
// top-level orchestrator that drives TimeRangeParser, PEGStore,
// PEGAggregator, DerivedPEGEngine, PromptTemplateStore, and LLMClient to
// produce one AnalysisResult. Grounded on the original analyzer's
// AnalysisService orchestration (services/analysis_service.py) and its
// concurrent-fetch pattern, adapted to golang.org/x/sync/errgroup.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/traylinx/pegcompare/internal/aggregator"
	"github.com/traylinx/pegcompare/internal/derived"
	"github.com/traylinx/pegcompare/internal/llmclient"
	"github.com/traylinx/pegcompare/internal/model"
	"github.com/traylinx/pegcompare/internal/pegstore"
	"github.com/traylinx/pegcompare/internal/prompt"
	"github.com/traylinx/pegcompare/internal/timerange"
)

const (
	stableThresholdPct   = 5.0
	mediumThresholdPct   = 10.0
	highThresholdPct     = 20.0
	highConfidence       = 0.85
	lowConfidence        = 0.5
	defaultPreviewRows   = 200
)

// Assembler wires together all collaborators needed to run one analysis.
type Assembler struct {
	Store    *pegstore.Store
	LLM      *llmclient.Client
	Prompts  *prompt.Store
	Parser   *timerange.Parser
	LLMOpts  llmclient.Options

	PreviewRows int
}

// New builds an Assembler from its collaborators.
func New(store *pegstore.Store, llm *llmclient.Client, prompts *prompt.Store, parser *timerange.Parser, llmOpts llmclient.Options) *Assembler {
	return &Assembler{Store: store, LLM: llm, Prompts: prompts, Parser: parser, LLMOpts: llmOpts, PreviewRows: defaultPreviewRows}
}

// Run executes the full workflow described in spec.md §4.8 and returns
// the terminal AnalysisResult. req is assumed already validated.
func (a *Assembler) Run(ctx context.Context, req model.AnalysisRequest, requestID string) (model.AnalysisResult, error) {
	n1Window, err := a.Parser.Parse(req.NMinus1)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	nWindow, err := a.Parser.Parse(req.N)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	filter := model.Filter{
		NE:       req.Filters.NE,
		CellIDs:  req.Filters.CellID,
		Host:     req.Filters.Host,
		PEGNames: req.SelectedPEGs,
	}

	cm := pegstore.ColumnMap(req.Columns)

	var n1Raw, nRaw []model.RawSample
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.Store.Fetch(gctx, req.Table, cm, n1Window, filter)
		if err != nil {
			return err
		}
		n1Raw = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.Store.Fetch(gctx, req.Table, cm, nWindow, filter)
		if err != nil {
			return err
		}
		nRaw = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.AnalysisResult{}, err
	}

	n1Agg, n1Ids := aggregator.Aggregate(n1Raw, model.NMinus1)
	nAgg, nIds := aggregator.Aggregate(nRaw, model.N)

	ids := n1Ids
	if ids.NEID == "" && ids.SWName == "" && ids.CellID == "" {
		ids = nIds
	}

	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }
	warnings = append(warnings, req.Warnings...)

	derivedDefs := make([]model.DerivedFormula, 0, len(req.PEGDefinitions))
	for name, expr := range req.PEGDefinitions {
		derivedDefs = append(derivedDefs, model.DerivedFormula{Name: name, Expression: expr})
	}
	n1Derived := derived.Evaluate(n1Agg, model.NMinus1, derivedDefs, warn)
	nDerived := derived.Evaluate(nAgg, model.N, derivedDefs, warn)

	records := joinRecords(n1Agg, nAgg, n1Derived, nDerived)
	summary := computeSummary(records)

	resolvedIdentifiers := resolveIdentifiers(ids, req.Filters)

	analysisID := uuid.NewString()

	llmFields, parseFailed, err := a.runLLM(ctx, req, records, summary, n1Window, nWindow, warn)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	metadata := map[string]any{
		"warnings": warnings,
	}
	if parseFailed {
		metadata["llm_parse_failed"] = true
	}

	result := model.AnalysisResult{
		Status:      model.StatusSuccess,
		RequestID:   requestID,
		AnalysisID:  analysisID,
		N1Window:    n1Window,
		NWindow:     nWindow,
		Records:     records,
		Summary:     summary,
		LLM:         llmFields,
		Identifiers: resolvedIdentifiers,
		Metadata:    metadata,
	}
	return result, nil
}

func resolveIdentifiers(ids model.AggregatorIdentifiers, filters model.RequestFilters) model.AnalysisIdentifiers {
	resolve := func(fromAgg, fromFilter string) string {
		if fromAgg != "" {
			return fromAgg
		}
		if fromFilter != "" {
			return fromFilter
		}
		return model.UnknownIdentifier
	}
	var cellFromFilter string
	if len(filters.CellID) > 0 {
		cellFromFilter = filters.CellID[0]
	}
	return model.AnalysisIdentifiers{
		NEID:   resolve(ids.NEID, filters.NE),
		CellID: resolve(ids.CellID, cellFromFilter),
		SWName: resolve(ids.SWName, filters.Host),
	}
}

// joinRecords merges the four aggregate slices (N-1 raw+derived, N
// raw+derived) into ComparisonRecords keyed by peg_name, filling the
// missing side with a zero AggregatedPEG and LOW data quality per
// spec.md §4.8 step 6.
func joinRecords(n1Agg, nAgg, n1Derived, nDerived []model.AggregatedPEG) []model.ComparisonRecord {
	type entry struct {
		n1, n     model.AggregatedPEG
		hasN1, hasN bool
		derived   bool
	}
	merged := make(map[string]*entry)
	order := make([]string, 0)

	upsert := func(a model.AggregatedPEG, isN1, isDerived bool) {
		e, ok := merged[a.PEGName]
		if !ok {
			e = &entry{}
			merged[a.PEGName] = e
			order = append(order, a.PEGName)
		}
		if isDerived {
			e.derived = true
		}
		if isN1 {
			e.n1, e.hasN1 = a, true
		} else {
			e.n, e.hasN = a, true
		}
	}

	for _, a := range n1Agg {
		upsert(a, true, false)
	}
	for _, a := range nAgg {
		upsert(a, false, false)
	}
	for _, a := range n1Derived {
		upsert(a, true, true)
	}
	for _, a := range nDerived {
		upsert(a, false, true)
	}

	records := make([]model.ComparisonRecord, 0, len(order))
	for _, name := range order {
		e := merged[name]
		n1 := e.n1
		if !e.hasN1 {
			n1 = model.AggregatedPEG{PEGName: name, WindowTag: model.NMinus1}
		}
		n := e.n
		if !e.hasN {
			n = model.AggregatedPEG{PEGName: name, WindowTag: model.N}
		}

		changeAbs := n.Avg - n1.Avg
		changePct := 0.0
		if n1.Avg != 0 {
			changePct = 100 * changeAbs / n1.Avg
		}

		trend := classifyTrend(changePct)
		significance := classifySignificance(changePct)

		confidence := lowConfidence
		if n1.Count >= 2 && n.Count >= 2 {
			confidence = highConfidence
		}

		dataQuality := model.DataQualityLow
		switch {
		case n1.Count >= 3 && n.Count >= 3:
			dataQuality = model.DataQualityHigh
		case n1.Count >= 1 && n.Count >= 1:
			dataQuality = model.DataQualityMedium
		}
		if !e.hasN1 || !e.hasN {
			dataQuality = model.DataQualityLow
		}

		records = append(records, model.ComparisonRecord{
			PEGName:      name,
			Weight:       1,
			N1:           n1,
			NValue:       n,
			ChangeAbs:    changeAbs,
			ChangePct:    changePct,
			Trend:        trend,
			Significance: significance,
			Confidence:   confidence,
			DataQuality:  dataQuality,
			Derived:      e.derived,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Weight != records[j].Weight {
			return records[i].Weight > records[j].Weight
		}
		return records[i].PEGName < records[j].PEGName
	})
	return records
}

func classifyTrend(changePct float64) model.Trend {
	abs := changePct
	if abs < 0 {
		abs = -abs
	}
	if abs < stableThresholdPct {
		return model.TrendStable
	}
	if changePct > 0 {
		return model.TrendUp
	}
	return model.TrendDown
}

func classifySignificance(changePct float64) model.Significance {
	abs := changePct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= highThresholdPct:
		return model.SignificanceHigh
	case abs >= mediumThresholdPct:
		return model.SignificanceMedium
	default:
		return model.SignificanceLow
	}
}

func computeSummary(records []model.ComparisonRecord) model.SummaryStats {
	var s model.SummaryStats
	var weightedSum, weightSum float64
	for _, r := range records {
		s.Total++
		switch r.Trend {
		case model.TrendUp:
			s.Improved++
		case model.TrendDown:
			s.Declined++
		default:
			s.Stable++
		}
		weightedSum += float64(r.Weight) * r.ChangePct
		weightSum += float64(r.Weight)
	}
	if weightSum > 0 {
		s.WeightedAvgChange = weightedSum / weightSum
	}
	s.OverallTrend = classifyTrend(s.WeightedAvgChange)
	return s
}

// runLLM renders the prompt and invokes the LLM. An LLMUnavailable error
// (failover exhaustion) is propagated to the caller, per spec.md §7 — the
// pipeline does not degrade to a fake success on that kind. Only an
// unparseable response gets the graceful llm_parse_failed degradation.
func (a *Assembler) runLLM(ctx context.Context, req model.AnalysisRequest, records []model.ComparisonRecord, summary model.SummaryStats, n1, n model.TimeWindow, warn func(string)) (model.LLMAnalysis, bool, error) {
	promptType := req.AnalysisType
	if promptType == "" {
		promptType = "enhanced"
	}

	preview := renderPreview(records, a.previewRows())
	vars := map[string]string{
		"n_minus_1_window": n1.Start.Format("2006-01-02 15:04:05") + " ~ " + n1.End.Format("2006-01-02 15:04:05"),
		"n_window":         n.Start.Format("2006-01-02 15:04:05") + " ~ " + n.End.Format("2006-01-02 15:04:05"),
		"data_preview":     preview,
		"total_pegs":       fmt.Sprintf("%d", summary.Total),
	}
	renderedPrompt := prompt.RenderOrFallback(a.Prompts, promptType, vars)

	opts := a.LLMOpts
	opts.Mock = opts.Mock || req.EnableMock

	text, err := a.LLM.Complete(ctx, renderedPrompt, opts)
	if err != nil {
		log.WithError(err).Error("llm unavailable after failover exhaustion")
		return model.LLMAnalysis{}, false, err
	}

	fields, ok := parseLLMResponse(text)
	if !ok {
		strictOpts := opts
		strictPrompt := renderedPrompt + "\n\nReturn a single JSON object only, with no surrounding prose."
		text2, err2 := a.LLM.Complete(ctx, strictPrompt, strictOpts)
		if err2 == nil {
			if fields2, ok2 := parseLLMResponse(text2); ok2 {
				return fields2, false, nil
			}
		}
		if warn != nil {
			warn("llm response could not be parsed as JSON after recovery retry")
		}
		return model.LLMAnalysis{}, true, nil
	}
	return fields, false, nil
}

func (a *Assembler) previewRows() int {
	if a.PreviewRows > 0 {
		return a.PreviewRows
	}
	return defaultPreviewRows
}

func renderPreview(records []model.ComparisonRecord, limit int) string {
	var b strings.Builder
	b.WriteString("peg_name\tn1_avg\tn_avg\tchange_pct\ttrend\n")
	for i, r := range records {
		if i >= limit {
			break
		}
		fmt.Fprintf(&b, "%s\t%.4f\t%.4f\t%.2f\t%s\n", r.PEGName, r.N1.Avg, r.NValue.Avg, r.ChangePct, r.Trend)
	}
	return b.String()
}
