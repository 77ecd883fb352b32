// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package validate implements RequestValidator (spec.md §4.10): normalizes
// and constrains the inbound JSON request, rejecting the first invalid
// field while collecting warnings for unrecognized ones. It reads the
// raw JSON with tidwall/gjson so unknown-field detection does not require
// a full struct round-trip.
package validate

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/traylinx/pegcompare/internal/errs"
	"github.com/traylinx/pegcompare/internal/model"
)

var recognizedFields = map[string]struct{}{
	"n_minus_1": {}, "n": {}, "analysis_type": {}, "enable_mock": {},
	"table": {}, "columns": {}, "filters": {}, "selected_pegs": {},
	"peg_definitions": {}, "max_prompt_tokens": {}, "db": {},
}

var recognizedAnalysisTypes = map[string]struct{}{
	"overall": {}, "enhanced": {}, "specific": {},
}

const defaultMaxPromptTokens = 24000

// Validate parses and validates raw JSON, returning a populated
// model.AnalysisRequest or the first RequestInvalid error encountered.
func Validate(raw []byte) (model.AnalysisRequest, error) {
	if !gjson.ValidBytes(raw) {
		return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "request body is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "request body must be a JSON object")
	}

	var req model.AnalysisRequest
	var warnings []string

	root.ForEach(func(key, _ gjson.Result) bool {
		if _, ok := recognizedFields[key.String()]; !ok {
			warnings = append(warnings, fmt.Sprintf("ignoring unrecognized field %q", key.String()))
		}
		return true
	})

	nMinus1 := root.Get("n_minus_1")
	if !nMinus1.Exists() || nMinus1.String() == "" {
		return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "n_minus_1 is required").WithField("n_minus_1")
	}
	req.NMinus1 = nMinus1.String()

	n := root.Get("n")
	if !n.Exists() || n.String() == "" {
		return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "n is required").WithField("n")
	}
	req.N = n.String()

	req.AnalysisType = "enhanced"
	if at := root.Get("analysis_type"); at.Exists() {
		v := at.String()
		if _, ok := recognizedAnalysisTypes[v]; !ok {
			return model.AnalysisRequest{}, errs.Newf(errs.RequestInvalid, "analysis_type must be one of overall|enhanced|specific, got %q", v).
				WithField("analysis_type")
		}
		req.AnalysisType = v
	}

	req.EnableMock = root.Get("enable_mock").Bool()

	req.Table = "summary"
	if t := root.Get("table"); t.Exists() {
		v := t.String()
		if !isSafeIdentifier(v) {
			return model.AnalysisRequest{}, errs.Newf(errs.RequestInvalid, "table %q is not a valid identifier", v).WithField("table")
		}
		req.Table = v
	}

	req.Columns = map[string]string{}
	if cols := root.Get("columns"); cols.Exists() {
		if !cols.IsObject() {
			return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "columns must be an object").WithField("columns")
		}
		var colErr error
		cols.ForEach(func(key, value gjson.Result) bool {
			if !isSafeIdentifier(value.String()) {
				colErr = errs.Newf(errs.RequestInvalid, "column %q has unsafe physical name %q", key.String(), value.String()).WithField("columns")
				return false
			}
			req.Columns[key.String()] = value.String()
			return true
		})
		if colErr != nil {
			return model.AnalysisRequest{}, colErr
		}
	}

	if f := root.Get("filters"); f.Exists() {
		if !f.IsObject() {
			return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "filters must be an object").WithField("filters")
		}
		req.Filters.NE = f.Get("ne").String()
		req.Filters.Host = f.Get("host").String()
		req.Filters.RelVer = f.Get("rel_ver").String()
		for _, v := range f.Get("cellid").Array() {
			req.Filters.CellID = append(req.Filters.CellID, v.String())
		}
	}

	if sp := root.Get("selected_pegs"); sp.Exists() {
		if !sp.IsArray() {
			return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "selected_pegs must be an array").WithField("selected_pegs")
		}
		for _, v := range sp.Array() {
			req.SelectedPEGs = append(req.SelectedPEGs, v.String())
		}
	}

	if pd := root.Get("peg_definitions"); pd.Exists() {
		if !pd.IsObject() {
			return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "peg_definitions must be an object").WithField("peg_definitions")
		}
		req.PEGDefinitions = map[string]string{}
		pd.ForEach(func(key, value gjson.Result) bool {
			req.PEGDefinitions[key.String()] = value.String()
			return true
		})
	}

	req.MaxPromptTokens = defaultMaxPromptTokens
	if mpt := root.Get("max_prompt_tokens"); mpt.Exists() {
		v := int(mpt.Int())
		if v < 1000 {
			return model.AnalysisRequest{}, errs.Newf(errs.RequestInvalid, "max_prompt_tokens must be >= 1000, got %d", v).
				WithField("max_prompt_tokens")
		}
		req.MaxPromptTokens = v
	}

	db := root.Get("db")
	if !req.EnableMock {
		if !db.Exists() || !db.IsObject() {
			return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "db is required unless enable_mock is set").WithField("db")
		}
		req.DB = model.DBConnection{
			Host:     db.Get("host").String(),
			Port:     int(db.Get("port").Int()),
			DBName:   db.Get("dbname").String(),
			User:     db.Get("user").String(),
			Password: db.Get("password").String(),
		}
		if req.DB.Host == "" || req.DB.DBName == "" {
			return model.AnalysisRequest{}, errs.New(errs.RequestInvalid, "db.host and db.dbname are required").WithField("db")
		}
	} else if db.Exists() && db.IsObject() {
		req.DB = model.DBConnection{
			Host:     db.Get("host").String(),
			Port:     int(db.Get("port").Int()),
			DBName:   db.Get("dbname").String(),
			User:     db.Get("user").String(),
			Password: db.Get("password").String(),
		}
	}

	req.Warnings = warnings
	return req, nil
}

func isSafeIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (i > 0 && r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}
