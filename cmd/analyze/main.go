// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides a one-shot CLI entrypoint for running a single
// analysis without standing up the HTTP server, reading the request body
// from a file (or stdin) and printing the response envelope to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/pegcompare/internal/analysis"
	"github.com/traylinx/pegcompare/internal/config"
	"github.com/traylinx/pegcompare/internal/llmclient"
	"github.com/traylinx/pegcompare/internal/logging"
	"github.com/traylinx/pegcompare/internal/model"
	"github.com/traylinx/pegcompare/internal/pegstore"
	"github.com/traylinx/pegcompare/internal/prompt"
	"github.com/traylinx/pegcompare/internal/response"
	"github.com/traylinx/pegcompare/internal/timerange"
	"github.com/traylinx/pegcompare/internal/validate"
)

func init() {
	logging.SetupBaseLogger()
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "-", "path to the request JSON file, or - for stdin")
	flag.Parse()

	cfg, err := config.LoadConfigOptional(*configPath, true)
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return 1
	}
	if err := logging.Configure(cfg.Logging); err != nil {
		log.WithError(err).Error("failed to configure logging")
		return 1
	}

	var body []byte
	if *inputPath == "-" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(*inputPath)
	}
	if err != nil {
		log.WithError(err).Error("failed to read request input")
		return 1
	}

	startedAt := time.Now()
	req, err := validate.Validate(body)
	if err != nil {
		printEnvelope(response.Failure(err, startedAt))
		return response.ExitCode(err)
	}

	tzOffset, err := config.ParseOffset(cfg.Timezone.DefaultOffset)
	if err != nil {
		log.WithError(err).Error("invalid default timezone offset")
		return 1
	}
	parser := timerange.New(tzOffset)

	promptStore, err := prompt.NewStore(cfg.Prompt.TemplatePath)
	if err != nil {
		printEnvelope(response.Failure(err, startedAt))
		return response.ExitCode(err)
	}

	llmClient := llmclient.New(llmclient.NewHTTPClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second))
	llmOpts := llmclient.Options{
		Endpoints:      cfg.LLM.Endpoints,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:     cfg.LLM.MaxRetries,
		BackoffBase:    cfg.LLM.BackoffBase,
		MaxPromptChars: cfg.LLM.MaxPromptChars,
		TruncateBuffer: cfg.LLM.TruncateBuffer,
	}

	dsn := buildDSN(cfg, req)
	ctx := context.Background()
	store, err := pegstore.Open(ctx, pegstore.Config{
		DSN:          dsn,
		MaxPoolSize:  int32(cfg.Store.PoolSize),
		MaxRetries:   cfg.Store.MaxRetries,
		RetryDelay:   time.Duration(cfg.Store.RetryDelayMillis) * time.Millisecond,
		MaxRows:      cfg.Store.MaxRows,
		QueryTimeout: 30 * time.Second,
	})
	if err != nil {
		printEnvelope(response.Failure(err, startedAt))
		return response.ExitCode(err)
	}
	defer store.Close()

	assembler := analysis.New(store, llmClient, promptStore, parser, llmOpts)
	assembler.PreviewRows = cfg.Prompt.PreviewRows

	result, err := assembler.Run(ctx, req, uuid.NewString())
	if err != nil {
		printEnvelope(response.Failure(err, startedAt))
		return response.ExitCode(err)
	}

	printEnvelope(response.Success(result, startedAt))
	return 0
}

func buildDSN(cfg *config.Config, req model.AnalysisRequest) string {
	db := req.DB
	if db.Host == "" {
		db = model.DBConnection{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			DBName:   cfg.Database.DBName,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
		}
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", db.User, db.Password, db.Host, db.Port, db.DBName)
}

func printEnvelope(env response.Envelope) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(env)
}
