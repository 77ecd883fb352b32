// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timerange parses the heterogeneous time-window strings accepted
// by the analysis request ("n_minus_1" / "n") into tzinfo-aware
// (start, end) pairs. It is grounded on the original analyzer's
// TimeRangeParser (utils/time_parser.py), staged the same way: validate
// input shape, split on the first '~', parse each side, then check
// start < end.
package timerange

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/traylinx/pegcompare/internal/errs"
	"github.com/traylinx/pegcompare/internal/model"
)

var (
	dateOnlyRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	fullDTRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[_-]\d{2}:\d{2}(:\d{2})?$`)
	abbrevTimeRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

// Parser parses time-range strings using a configured default timezone
// offset, applied to every parsed instant. Inputs that carry an explicit
// offset are not accepted and fail with a TimeParse error.
type Parser struct {
	DefaultOffset time.Duration
}

// New builds a Parser with the given default UTC offset (e.g. 9*time.Hour
// for "+09:00").
func New(defaultOffset time.Duration) *Parser {
	return &Parser{DefaultOffset: defaultOffset}
}

func (p *Parser) tz() *time.Location {
	return time.FixedZone(offsetName(p.DefaultOffset), int(p.DefaultOffset.Seconds()))
}

func offsetName(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return sign + pad2(h) + ":" + pad2(m)
}

func pad2(v int) string {
	s := strconv.Itoa(v)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// Parse parses text into a model.TimeWindow. It accepts, with equal
// precedence (most-specific form wins on ambiguity, per spec.md §4.1):
//
//  1. "YYYY-MM-DD_HH:MM~HH:MM"                 (abbreviated end time)
//  2. "YYYY-MM-DD_HH:MM~YYYY-MM-DD_HH:MM"       (full endpoints)
//  3. "YYYY-MM-DD"                              (whole day)
//
// Either form accepts '-' in place of '_' between date and time, optional
// ":SS" seconds, and arbitrary surrounding whitespace.
func (p *Parser) Parse(text string) (model.TimeWindow, error) {
	raw := text
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "empty time range string").
			WithDetails(map[string]any{"input": raw}).
			WithHint("example: 2025-08-08_15:00~2025-08-08_19:00 or 2025-08-08")
	}

	if strings.Contains(trimmed, "~") {
		return p.parseRange(trimmed, raw)
	}
	if dateOnlyRe.MatchString(trimmed) {
		return p.parseSingleDate(trimmed, raw)
	}

	return model.TimeWindow{}, errs.New(errs.TimeParse, "input does not match any supported format").
		WithDetails(map[string]any{"input": raw}).
		WithHint("example: 2025-08-08_15:00~2025-08-08_19:00, 2025-08-08_15:00~19:00, or 2025-08-08")
}

func (p *Parser) parseRange(text, raw string) (model.TimeWindow, error) {
	if strings.Count(text, "~") != 1 {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "range separator '~' missing or repeated").
			WithDetails(map[string]any{"input": raw})
	}
	parts := strings.SplitN(text, "~", 2)
	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if left == "" || right == "" {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "both start and end are required").
			WithDetails(map[string]any{"input": raw})
	}

	tz := p.tz()

	if !fullDTRe.MatchString(left) {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "left side is not a valid date-time").
			WithDetails(map[string]any{"input": left})
	}
	start, err := parseDateTime(left, tz)
	if err != nil {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "invalid start date/time").
			WithDetails(map[string]any{"input": left, "cause": err.Error()}).WithCause(err)
	}

	var end time.Time
	if abbrevTimeRe.MatchString(right) {
		// Abbreviated form: inherit the date from the left side.
		datePart := left[:10]
		end, err = parseDateTime(datePart+"_"+normalizeSeconds(right), tz)
		if err != nil {
			return model.TimeWindow{}, errs.New(errs.TimeParse, "invalid end time").
				WithDetails(map[string]any{"input": right, "cause": err.Error()}).WithCause(err)
		}
		if isEndOfDayAbbrev(right) {
			end = endOfDayInclusive(end)
		}
	} else if fullDTRe.MatchString(right) {
		end, err = parseDateTime(right, tz)
		if err != nil {
			return model.TimeWindow{}, errs.New(errs.TimeParse, "invalid end date/time").
				WithDetails(map[string]any{"input": right, "cause": err.Error()}).WithCause(err)
		}
		if isEndOfDayAbbrev(right[11:]) {
			end = endOfDayInclusive(end)
		}
	} else {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "right side is not a valid date-time").
			WithDetails(map[string]any{"input": right})
	}

	return finishWindow(start, end, raw)
}

func (p *Parser) parseSingleDate(text, raw string) (model.TimeWindow, error) {
	tz := p.tz()
	day, err := time.ParseInLocation("2006-01-02", text, tz)
	if err != nil {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "invalid date").
			WithDetails(map[string]any{"input": text, "cause": err.Error()}).WithCause(err)
	}
	start := day
	end := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, tz)
	return finishWindow(start, end, raw)
}

func finishWindow(start, end time.Time, raw string) (model.TimeWindow, error) {
	if !start.Before(end) {
		return model.TimeWindow{}, errs.New(errs.TimeParse, "start must be strictly before end").
			WithDetails(map[string]any{"input": raw})
	}
	return model.TimeWindow{Start: start, End: end}, nil
}

// normalizeSeconds appends ":00" if the HH:MM string lacks seconds.
func normalizeSeconds(clock string) string {
	if strings.Count(clock, ":") == 1 {
		return clock + ":00"
	}
	return clock
}

// isEndOfDayAbbrev reports whether the clock part is exactly "23:59"
// (seconds omitted), the case spec.md §4.1 requires treating as
// "23:59:59" for inclusivity.
func isEndOfDayAbbrev(clock string) bool {
	return clock == "23:59"
}

func endOfDayInclusive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// parseDateTime parses "YYYY-MM-DD_HH:MM[:SS]" or the '-'-separated
// variant, normalizing the separator before delegating to time.Parse.
func parseDateTime(text string, tz *time.Location) (time.Time, error) {
	norm := normalizeSeparator(text)
	layout := "2006-01-02_15:04:05"
	if strings.Count(norm, ":") == 1 {
		norm += ":00"
	}
	return time.ParseInLocation(layout, norm, tz)
}

// normalizeSeparator converts "YYYY-MM-DD-HH:MM[:SS]" to the canonical
// "YYYY-MM-DD_HH:MM[:SS]" form by replacing only the date/time boundary
// dash, never a date-internal dash.
func normalizeSeparator(s string) string {
	if len(s) < 11 {
		return s
	}
	if s[10] == '-' {
		return s[:10] + "_" + s[11:]
	}
	return s
}

// Canonical renders a window's start/end using the canonical full-endpoint
// form, used by the round-trip property test in spec.md §8.
func Canonical(w model.TimeWindow) string {
	return w.Start.Format("2006-01-02_15:04:05") + "~" + w.End.Format("2006-01-02_15:04:05")
}
