// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package analysis

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/traylinx/pegcompare/internal/model"
)

// jsonBlockPatterns mirrors the original analyzer's layered extraction
// strategy: a fenced ```json block, a bare fenced block, then a best
// effort brace-matched substring, finally falling back to treating the
// whole response as JSON.
var jsonBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile(`(?s)(\{[^{}]*\{.*?\}[^{}]*\})`),
	regexp.MustCompile(`(?s)(\{.*?\})`),
}

// parseLLMResponse extracts the first JSON object embedded in text and
// maps its recognized fields onto model.LLMAnalysis. All fields default
// to their zero value; a field present but of the wrong shape is
// ignored rather than failing the whole parse.
func parseLLMResponse(text string) (model.LLMAnalysis, bool) {
	candidate := extractJSONObject(text)
	if candidate == "" {
		return model.LLMAnalysis{}, false
	}
	root := gjson.Parse(candidate)
	if !root.IsObject() {
		return model.LLMAnalysis{}, false
	}

	var out model.LLMAnalysis
	out.Summary = root.Get("summary").String()
	out.ModelLabel = root.Get("model_name").String()
	out.Confidence = root.Get("confidence").Float()

	for _, v := range root.Get("issues").Array() {
		out.Issues = append(out.Issues, v.String())
	}
	for _, v := range root.Get("recommendations").Array() {
		out.Recommendations = append(out.Recommendations, v.String())
	}
	if notes := root.Get("per_peg_notes"); notes.IsObject() {
		out.PerPEGNotes = make(map[string]string)
		notes.ForEach(func(key, value gjson.Result) bool {
			out.PerPEGNotes[key.String()] = value.String()
			return true
		})
	}
	return out, true
}

func extractJSONObject(text string) string {
	for _, re := range jsonBlockPatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			candidate := strings.TrimSpace(m[1])
			if gjson.Valid(candidate) {
				return candidate
			}
		}
	}
	trimmed := strings.TrimSpace(text)
	if gjson.Valid(trimmed) {
		return trimmed
	}
	return ""
}
