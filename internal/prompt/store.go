// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package prompt implements the PromptTemplateStore (spec.md §4.3):
// loading a YAML document of named prompt templates, rendering them with
// named variables, and reloading from disk either explicitly or via an
// fsnotify watch. Grounded on the original analyzer's PromptLoader
// (config/prompt_loader.py), which resolves a config path, caches the
// parsed document, and substitutes "{name}" placeholders.
package prompt

import (
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	yaml "github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/pegcompare/internal/errs"
)

// FallbackPrompt is the minimal string a caller may use when it cannot
// tolerate a template failure. Using it is always a conscious decision at
// the call site, per spec.md §4.3 — Store never falls back on its own.
const FallbackPrompt = "Analyze N-1 vs N for the provided PEGs."

// Metadata describes the template document's declared shape.
type Metadata struct {
	Version     string     `yaml:"version"`
	Description string     `yaml:"description"`
	FormatType  string     `yaml:"format_type"`
	Variables   []Variable `yaml:"variables"`
}

// Variable documents one named template placeholder.
type Variable struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type document struct {
	Metadata Metadata          `yaml:"metadata"`
	Prompts  map[string]string `yaml:"prompts"`
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Store is the process-lifetime prompt-template holder. Reads are
// lock-free after the first load: the current document is held behind an
// atomic.Pointer, swapped wholesale on Reload under a writer lock so
// concurrent Render calls never observe a half-updated document.
type Store struct {
	path    string
	current atomic.Pointer[document]
	mu      sync.Mutex // serializes Reload/load calls only
	watcher *fsnotify.Watcher
}

// NewStore loads path immediately; a load failure with no prior
// successful load is a TemplateLoad error.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads and validates the document at s.path, swapping it in only on
// success. On failure it deliberately keeps whatever document is already
// loaded (per spec.md §4.3): when one exists the failure is logged and nil
// is returned; only a failure with no document yet loaded is returned as
// an error.
func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if s.current.Load() != nil {
			log.WithError(err).Warn("prompt template reload failed, keeping previous document")
			return nil
		}
		return errs.Newf(errs.TemplateLoad, "failed to read template file %q", s.path).WithCause(err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if s.current.Load() != nil {
			log.WithError(err).Warn("prompt template reload failed to parse, keeping previous document")
			return nil
		}
		return errs.Newf(errs.TemplateLoad, "failed to parse template file %q", s.path).WithCause(err)
	}

	if err := validate(doc); err != nil {
		if s.current.Load() != nil {
			log.WithError(err).Warn("prompt template reload failed validation, keeping previous document")
			return nil
		}
		return err
	}

	s.current.Store(&doc)
	log.WithField("path", s.path).WithField("prompt_types", len(doc.Prompts)).Info("prompt templates loaded")
	return nil
}

func validate(doc document) error {
	if len(doc.Prompts) == 0 {
		return errs.New(errs.TemplateLoad, "template document has no prompts")
	}
	for k, v := range doc.Prompts {
		if strings.TrimSpace(v) == "" {
			return errs.Newf(errs.TemplateLoad, "prompt %q is empty", k)
		}
	}
	return nil
}

// Reload re-reads the template file from disk.
func (s *Store) Reload() error {
	return s.load()
}

// WatchForChanges starts an fsnotify watch on the template file and calls
// Reload whenever it changes, in addition to whatever explicit Reload
// calls the caller makes. The returned stop function closes the watcher.
func (s *Store) WatchForChanges() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Newf(errs.Internal, "failed to create template watcher").WithCause(err)
	}
	if err := w.Add(s.path); err != nil {
		w.Close()
		return nil, errs.Newf(errs.Internal, "failed to watch template file %q", s.path).WithCause(err)
	}
	s.watcher = w

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := s.load(); err != nil {
						log.WithError(err).Warn("prompt template auto-reload failed")
					}
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(werr).Warn("prompt template watcher error")
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		w.Close()
	}, nil
}

// Available returns the set of loaded prompt types.
func (s *Store) Available() map[string]struct{} {
	doc := s.current.Load()
	out := make(map[string]struct{}, len(doc.Prompts))
	for k := range doc.Prompts {
		out[k] = struct{}{}
	}
	return out
}

// Render substitutes "{name}" placeholders in the named template from
// vars. A placeholder with no matching var is a TemplateVarMissing error.
func (s *Store) Render(promptType string, vars map[string]string) (string, error) {
	doc := s.current.Load()
	tmpl, ok := doc.Prompts[promptType]
	if !ok {
		return "", errs.Newf(errs.TemplateLoad, "unknown prompt type %q", promptType)
	}

	var missing string
	result := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		if missing == "" {
			missing = name
		}
		return match
	})
	if missing != "" {
		return "", errs.Newf(errs.TemplateVarMissing, "missing template variable %q", missing).
			WithField(missing)
	}
	return result, nil
}

// RenderOrFallback is the explicit, conscious-decision helper spec.md
// §4.3 calls for: callers that cannot tolerate a Render failure use this
// instead of calling Render directly.
func RenderOrFallback(s *Store, promptType string, vars map[string]string) string {
	out, err := s.Render(promptType, vars)
	if err != nil {
		log.WithError(err).WithField("prompt_type", promptType).Warn("falling back to minimal prompt")
		return FallbackPrompt
	}
	return out
}
