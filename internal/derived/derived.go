// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package derived implements DerivedPEGEngine (spec.md §4.7): evaluates
// user-supplied formulas against a window's aggregated averages,
// producing additional AggregatedPEG entries.
package derived

import (
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/pegcompare/internal/formula"
	"github.com/traylinx/pegcompare/internal/model"
)

// Evaluate computes one derived AggregatedPEG per entry in defs, binding
// each formula's identifiers against the avg of aggregated's matching
// peg_name. A formula referencing a missing name is omitted and reported
// through warn rather than failing the whole batch, per spec.md §4.7.
func Evaluate(aggregated []model.AggregatedPEG, tag model.WindowTag, defs []model.DerivedFormula, warn func(string)) []model.AggregatedPEG {
	bindings := make(map[string]float64, len(aggregated))
	for _, a := range aggregated {
		bindings[a.PEGName] = a.Avg
	}

	out := make([]model.AggregatedPEG, 0, len(defs))
	for _, def := range defs {
		value, divByZero, err := formula.Eval(def.Expression, bindings)
		if err != nil {
			msg := "derived PEG " + def.Name + " could not be evaluated: " + err.Error()
			log.WithError(err).WithField("derived_peg", def.Name).Warn("skipping derived peg")
			if warn != nil {
				warn(msg)
			}
			continue
		}
		if divByZero && warn != nil {
			warn("derived PEG " + def.Name + " divided by zero; value set to 0")
		}
		out = append(out, model.AggregatedPEG{
			PEGName:   def.Name,
			WindowTag: tag,
			Avg:       value,
			Count:     0,
			RSD:       0,
		})
	}
	return out
}
