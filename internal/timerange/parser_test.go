// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timerange

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptedSyntaxes(t *testing.T) {
	p := New(9 * time.Hour)

	cases := []struct {
		name  string
		input string
	}{
		{"abbreviated end time, underscore", "2025-08-08_15:00~19:00"},
		{"abbreviated end time, dash", "2025-08-08-15:00~19:00"},
		{"full endpoints", "2025-08-08_15:00~2025-08-09_03:00"},
		{"date only", "2025-08-08"},
		{"whitespace tolerant", "  2025-08-08_15:00 ~ 19:00  "},
		{"seconds included", "2025-08-08_15:00:30~19:00:45"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := p.Parse(tc.input)
			require.NoError(t, err)
			assert.True(t, w.Start.Before(w.End))
		})
	}
}

func TestParse_EndOfDayAbbreviationIsInclusive(t *testing.T) {
	p := New(9 * time.Hour)
	w, err := p.Parse("2025-08-08_00:00~23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, w.End.Hour())
	assert.Equal(t, 59, w.End.Minute())
	assert.Equal(t, 59, w.End.Second())
}

func TestParse_RejectsEqualOrReversedWindow(t *testing.T) {
	p := New(9 * time.Hour)

	_, err := p.Parse("2025-08-08_19:00~15:00")
	require.Error(t, err)

	_, err = p.Parse("2025-08-08_15:00~2025-08-08_15:00")
	require.Error(t, err)
}

func TestParse_RejectsMalformedInput(t *testing.T) {
	p := New(9 * time.Hour)

	cases := []string{"", "not-a-date", "2025-13-40", "2025-08-08_25:00~19:00", "2025-08-08~~19:00"}
	for _, input := range cases {
		_, err := p.Parse(input)
		assert.Error(t, err, "expected error for input %q", input)
	}
}

func TestProperty_CanonicalRoundTrip(t *testing.T) {
	p := New(9 * time.Hour)
	properties := gopter.NewProperties(nil)

	properties.Property("parsing a canonical full-endpoint string and re-rendering it is idempotent", prop.ForAll(
		func(startOffsetMin, durationMin int) bool {
			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("+09:00", 9*3600))
			start := base.Add(time.Duration(startOffsetMin) * time.Minute)
			end := start.Add(time.Duration(durationMin+1) * time.Minute)

			text := start.Format("2006-01-02_15:04:05") + "~" + end.Format("2006-01-02_15:04:05")
			w, err := p.Parse(text)
			if err != nil {
				return false
			}
			return Canonical(w) == text
		},
		gen.IntRange(0, 60*24*30),
		gen.IntRange(0, 60*24),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
