// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traylinx/pegcompare/internal/errs"
)

const validDoc = `
metadata:
  version: "1"
  description: test
  format_type: text
  variables:
    - name: n_minus_1_window
      type: string
prompts:
  enhanced: "Compare {n_minus_1_window} against {n_window} for {total_pegs} PEGs."
`

func writeTemplate(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "v1.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewStore_LoadsValidDocument(t *testing.T) {
	path := writeTemplate(t, validDoc)
	s, err := NewStore(path)
	require.NoError(t, err)
	_, ok := s.Available()["enhanced"]
	assert.True(t, ok)
}

func TestRender_SubstitutesNamedVariables(t *testing.T) {
	path := writeTemplate(t, validDoc)
	s, err := NewStore(path)
	require.NoError(t, err)

	out, err := s.Render("enhanced", map[string]string{
		"n_minus_1_window": "A",
		"n_window":         "B",
		"total_pegs":       "3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Compare A against B for 3 PEGs.", out)
}

func TestRender_MissingVariableIsError(t *testing.T) {
	path := writeTemplate(t, validDoc)
	s, err := NewStore(path)
	require.NoError(t, err)

	_, err = s.Render("enhanced", map[string]string{"n_minus_1_window": "A"})
	require.Error(t, err)
	assert.Equal(t, errs.TemplateVarMissing, errs.KindOf(err))
}

func TestReload_KeepsPreviousDocumentOnFailure(t *testing.T) {
	path := writeTemplate(t, validDoc)
	s, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: at: all: ["), 0o644))
	err = s.Reload()
	require.NoError(t, err)

	_, ok := s.Available()["enhanced"]
	assert.True(t, ok)
}

func TestNewStore_FailsWhenNoDocumentEverLoaded(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errs.TemplateLoad, errs.KindOf(err))
}

func TestRenderOrFallback_ReturnsFallbackOnError(t *testing.T) {
	path := writeTemplate(t, validDoc)
	s, err := NewStore(path)
	require.NoError(t, err)

	out := RenderOrFallback(s, "unknown_type", nil)
	assert.Equal(t, FallbackPrompt, out)
}
