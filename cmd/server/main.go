// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the PEG comparison server: a
// thin gin HTTP front end over the analysis pipeline, exposing a single
// POST /v1/analyze route plus GET /healthz.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/pegcompare/internal/analysis"
	"github.com/traylinx/pegcompare/internal/config"
	"github.com/traylinx/pegcompare/internal/errs"
	"github.com/traylinx/pegcompare/internal/llmclient"
	"github.com/traylinx/pegcompare/internal/logging"
	"github.com/traylinx/pegcompare/internal/model"
	"github.com/traylinx/pegcompare/internal/pegstore"
	"github.com/traylinx/pegcompare/internal/prompt"
	"github.com/traylinx/pegcompare/internal/response"
	"github.com/traylinx/pegcompare/internal/timerange"
	"github.com/traylinx/pegcompare/internal/validate"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfigOptional(*configPath, true)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := logging.Configure(cfg.Logging); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	log.WithFields(log.Fields{"version": Version, "commit": Commit, "build_date": BuildDate}).Info("starting pegcompare server")

	tzOffset, err := config.ParseOffset(cfg.Timezone.DefaultOffset)
	if err != nil {
		log.WithError(err).Fatal("invalid default timezone offset")
	}
	parser := timerange.New(tzOffset)

	promptStore, err := prompt.NewStore(cfg.Prompt.TemplatePath)
	if err != nil {
		log.WithError(err).Fatal("failed to load prompt templates")
	}
	if cfg.Prompt.WatchForChanges {
		if stop, err := promptStore.WatchForChanges(); err != nil {
			log.WithError(err).Warn("failed to start prompt template watcher, continuing without hot-reload")
		} else {
			defer stop()
		}
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

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLoggerMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/v1/analyze", analyzeHandler(cfg, parser, promptStore, llmClient, llmOpts))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func requestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"request_id": requestID,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"path":       c.Request.URL.Path,
		}).Info("request handled")
	}
}

func analyzeHandler(cfg *config.Config, parser *timerange.Parser, promptStore *prompt.Store, llmClient *llmclient.Client, llmOpts llmclient.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		requestID, _ := c.Get("request_id")
		reqIDStr, _ := requestID.(string)

		body, err := c.GetRawData()
		if err != nil {
			writeError(c, errs.New(errs.RequestInvalid, "failed to read request body"), startedAt)
			return
		}

		req, err := validate.Validate(body)
		if err != nil {
			writeError(c, err, startedAt)
			return
		}

		dsn := buildDSN(cfg, req)
		store, err := pegstore.Open(c.Request.Context(), pegstore.Config{
			DSN:          dsn,
			MaxPoolSize:  int32(cfg.Store.PoolSize),
			MaxRetries:   cfg.Store.MaxRetries,
			RetryDelay:   time.Duration(cfg.Store.RetryDelayMillis) * time.Millisecond,
			MaxRows:      cfg.Store.MaxRows,
			QueryTimeout: 30 * time.Second,
		})
		if err != nil {
			writeError(c, err, startedAt)
			return
		}
		defer store.Close()

		assembler := analysis.New(store, llmClient, promptStore, parser, llmOpts)
		assembler.PreviewRows = cfg.Prompt.PreviewRows

		result, err := assembler.Run(c.Request.Context(), req, reqIDStr)
		if err != nil {
			writeError(c, err, startedAt)
			return
		}

		c.JSON(http.StatusOK, response.Success(result, startedAt))
	}
}

// buildDSN prefers the per-request "db" connection when the caller
// supplied one, falling back to the server's configured default.
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

func writeError(c *gin.Context, err error, startedAt time.Time) {
	code := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.RequestInvalid, errs.TimeParse:
		code = http.StatusBadRequest
	case errs.StoreResultTooLarge:
		code = http.StatusUnprocessableEntity
	case errs.StoreFailure, errs.LLMUnavailable, errs.LLMBadResponse:
		code = http.StatusBadGateway
	}
	c.JSON(code, response.Failure(err, startedAt))
}
