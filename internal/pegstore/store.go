// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pegstore implements PEGStore (spec.md §4.4): a parameterized,
// pooled read against the relational PEG table. jackc/pgx/v5 is declared
// in the teacher's go.mod but exercised by none of its retrieved files —
// this package gives it its first real home.
package pegstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/pegcompare/internal/errs"
	"github.com/traylinx/pegcompare/internal/model"
)

// logicalColumns is the fixed set of columns the query selects, in order.
// Names are resolved through a caller-supplied column map and never
// string-interpolated from request input beyond that whitelist lookup.
var logicalColumns = []string{"timestamp", "peg_name", "value", "ne_key", "host_name", "index_name", "cell_id"}

// Config controls pool sizing, retry, and result-size limits.
type Config struct {
	DSN          string
	MaxPoolSize  int32
	MaxRetries   int
	RetryDelay   time.Duration
	MaxRows      int
	QueryTimeout time.Duration
}

// DefaultConfig mirrors spec.md §4.4's stated defaults.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:          dsn,
		MaxPoolSize:  10,
		MaxRetries:   2,
		RetryDelay:   100 * time.Millisecond,
		MaxRows:      1_000_000,
		QueryTimeout: 30 * time.Second,
	}
}

// Store is a pooled, read-only adapter over the relational PEG table.
type Store struct {
	pool *pgxpool.Pool
	cfg  Config
}

// Open builds a connection pool bounded by cfg.MaxPoolSize.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Newf(errs.StoreFailure, "invalid database connection string").WithCause(err)
	}
	poolCfg.MaxConns = cfg.MaxPoolSize
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Newf(errs.StoreFailure, "failed to create connection pool").WithCause(err)
	}
	return &Store{pool: pool, cfg: cfg}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ColumnMap resolves each logical column name to its physical column name
// in table. A logical column with no entry resolves to its own name; the
// request-side keys "time", "ne", "cellid" and "host" are accepted for
// timestamp, ne_key, cell_id and host_name. Entries under any other key
// are ignored.
type ColumnMap map[string]string

func (cm ColumnMap) resolve(table string) (map[string]string, error) {
	aliases := map[string]string{"timestamp": "time", "ne_key": "ne", "cell_id": "cellid", "host_name": "host"}
	resolved := make(map[string]string, len(logicalColumns))
	for _, logical := range logicalColumns {
		phys := logical
		override, ok := cm[logical]
		if !ok && aliases[logical] != "" {
			override, ok = cm[aliases[logical]]
		}
		if ok && strings.TrimSpace(override) != "" {
			phys = override
		}
		if !isSafeIdentifier(phys) {
			return nil, errs.Newf(errs.RequestInvalid, "column name %q is not a valid identifier", phys)
		}
		resolved[logical] = phys
	}
	if !isSafeIdentifier(table) {
		return nil, errs.Newf(errs.RequestInvalid, "table name %q is not a valid identifier", table)
	}
	return resolved, nil
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

// Fetch runs the whitelisted, parameterized query described in spec.md
// §4.4 and returns raw rows ordered by timestamp ascending.
func (s *Store) Fetch(ctx context.Context, table string, cm ColumnMap, window model.TimeWindow, filters model.Filter) ([]model.RawSample, error) {
	cols, err := cm.resolve(table)
	if err != nil {
		return nil, err
	}

	query, args := buildQuery(table, cols, window, filters, s.cfg.MaxRows+1)

	var rows pgx.Rows
	var attempt int
	for {
		qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
		rows, err = s.pool.Query(qctx, query, args...)
		cancel()
		if err == nil {
			break
		}
		attempt++
		if attempt > s.cfg.MaxRetries {
			return nil, errs.Newf(errs.StoreFailure, "query failed after %d attempts", attempt).WithCause(err)
		}
		log.WithError(err).WithField("attempt", attempt).Warn("peg store query failed, retrying")
		time.Sleep(s.cfg.RetryDelay)
	}
	defer rows.Close()

	samples := make([]model.RawSample, 0, 1024)
	for rows.Next() {
		if len(samples) >= s.cfg.MaxRows {
			return nil, errs.Newf(errs.StoreResultTooLarge, "result exceeds limit of %d rows", s.cfg.MaxRows).
				WithDetails(map[string]any{"limit": s.cfg.MaxRows})
		}
		var rs model.RawSample
		if err := rows.Scan(&rs.Timestamp, &rs.PEGName, &rs.Value, &rs.NEKey, &rs.HostName, &rs.IndexName, &rs.CellID); err != nil {
			return nil, errs.Newf(errs.StoreFailure, "failed to decode row").WithCause(err)
		}
		samples = append(samples, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Newf(errs.StoreFailure, "row iteration failed").WithCause(err)
	}
	return samples, nil
}

// buildQuery assembles the SELECT with parameter placeholders, omitting
// any empty IN-list predicate rather than evaluating it to false, and
// preserving the WHERE clause order spec.md §4.4 mandates: time range,
// ne_key, cell_id IN (...), peg_name IN (...), host_name.
func buildQuery(table string, cols map[string]string, window model.TimeWindow, filters model.Filter, limit int) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s >= $1 AND %s <= $2",
		cols["timestamp"], cols["peg_name"], cols["value"], cols["ne_key"], cols["host_name"], cols["index_name"], cols["cell_id"],
		table, cols["timestamp"], cols["timestamp"])
	args := []any{window.Start, window.End}

	if filters.NE != "" {
		args = append(args, filters.NE)
		fmt.Fprintf(&b, " AND %s = $%d", cols["ne_key"], len(args))
	}
	if len(filters.CellIDs) > 0 {
		placeholders := make([]string, len(filters.CellIDs))
		for i, v := range filters.CellIDs {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		fmt.Fprintf(&b, " AND %s IN (%s)", cols["cell_id"], strings.Join(placeholders, ", "))
	}
	if len(filters.PEGNames) > 0 {
		placeholders := make([]string, len(filters.PEGNames))
		for i, v := range filters.PEGNames {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		fmt.Fprintf(&b, " AND %s IN (%s)", cols["peg_name"], strings.Join(placeholders, ", "))
	}
	if filters.Host != "" {
		args = append(args, filters.Host)
		fmt.Fprintf(&b, " AND %s = $%d", cols["host_name"], len(args))
	}

	fmt.Fprintf(&b, " ORDER BY %s ASC LIMIT %d", cols["timestamp"], limit)
	return b.String(), args
}
