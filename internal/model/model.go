// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model defines the entities shared across the PEG comparison
// pipeline: time windows, raw and aggregated samples, comparison records,
// and the request/result envelopes. All values here are owned by a single
// analysis invocation (see internal/analysis) unless stated otherwise.
package model

import "time"

// WindowTag distinguishes the baseline period from the comparison period.
type WindowTag string

const (
	NMinus1 WindowTag = "N_MINUS_1"
	N       WindowTag = "N"
)

// Trend classifies the direction of change between two windows.
type Trend string

const (
	TrendUp     Trend = "UP"
	TrendDown   Trend = "DOWN"
	TrendStable Trend = "STABLE"
)

// Significance classifies the magnitude of a change.
type Significance string

const (
	SignificanceHigh   Significance = "HIGH"
	SignificanceMedium Significance = "MEDIUM"
	SignificanceLow    Significance = "LOW"
)

// DataQuality classifies how much raw data backs a comparison record.
type DataQuality string

const (
	DataQualityHigh   DataQuality = "HIGH"
	DataQualityMedium DataQuality = "MEDIUM"
	DataQualityLow    DataQuality = "LOW"
)

// TimeWindow is a timezone-aware [Start, End] span.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Filter restricts which raw rows PEGStore.Fetch returns. Empty slices/
// strings mean "no restriction", per spec.md §3.
type Filter struct {
	NE        string
	CellIDs   []string
	Host      string
	PEGNames  []string
}

// RawSample is one row fetched from the relational PEG store.
type RawSample struct {
	Timestamp time.Time
	PEGName   string
	Value     float64
	NEKey     string
	HostName  string
	IndexName string
	CellID    string
}

// AggregatedPEG is the per-PEG-name, per-window reduction of RawSamples.
type AggregatedPEG struct {
	PEGName    string
	WindowTag  WindowTag
	Avg        float64
	Count      int
	RSD        float64
}

// AggregatorIdentifiers are the record-level identifiers PEGAggregator
// captures from the first non-empty row, before the groupwise reduction
// would otherwise drop them. See spec.md §4.6's invariant.
type AggregatorIdentifiers struct {
	NEID  string
	SWName string
	CellID string
}

// AnalysisIdentifiers is the final, precedence-resolved identifier triple
// attached to an AnalysisResult.
type AnalysisIdentifiers struct {
	NEID   string
	CellID string
	SWName string
}

const UnknownIdentifier = "unknown"

// DerivedFormula is a user-supplied name→expression pair evaluated by
// internal/formula against a window's aggregated averages.
type DerivedFormula struct {
	Name       string
	Expression string
}

// ComparisonRecord is one row of the final comparison table: a PEG's N-1
// vs N aggregates plus the derived classification fields.
type ComparisonRecord struct {
	PEGName      string
	Weight       int
	N1           AggregatedPEG
	NValue       AggregatedPEG
	ChangeAbs    float64
	ChangePct    float64
	Trend        Trend
	Significance Significance
	Confidence   float64
	CellID       string
	DataQuality  DataQuality
	Derived      bool
}

// LLMAnalysis is the qualitative interpretation produced by the LLM, with
// every field defaulting to its zero value rather than null/absent.
type LLMAnalysis struct {
	Summary         string
	Issues          []string
	Recommendations []string
	PerPEGNotes     map[string]string
	Confidence      float64
	ModelLabel      string
}

// SummaryStats aggregates the comparison record set.
type SummaryStats struct {
	Total              int
	Improved           int
	Declined           int
	Stable             int
	WeightedAvgChange  float64
	OverallTrend       Trend
}

// AnalysisRequest is the normalized, validated inbound request.
type AnalysisRequest struct {
	NMinus1          string
	N                string
	AnalysisType     string // overall | enhanced | specific
	EnableMock       bool
	Table            string
	Columns          map[string]string
	Filters          RequestFilters
	SelectedPEGs     []string
	PEGDefinitions   map[string]string
	MaxPromptTokens  int
	DB               DBConnection
	Warnings         []string
}

// RequestFilters mirrors the "filters" object in the inbound JSON request.
type RequestFilters struct {
	NE     string
	CellID []string
	Host   string
	RelVer string
}

// DBConnection is the relational store's connection parameters, supplied
// per request (spec.md §4.10's "db" field).
type DBConnection struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
}

// Status is the top-level outcome of an analysis invocation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// AnalysisResult is the pipeline's terminal output, handed to
// PayloadBuilder and ResponseFormatter.
type AnalysisResult struct {
	Status       Status
	RequestID    string
	AnalysisID   string
	N1Window     TimeWindow
	NWindow      TimeWindow
	Records      []ComparisonRecord
	Summary      SummaryStats
	LLM          LLMAnalysis
	Identifiers  AnalysisIdentifiers
	Metadata     map[string]any
}
