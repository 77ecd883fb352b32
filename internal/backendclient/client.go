// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backendclient implements the downstream Backend.Post collaborator
// named in spec.md §1: a thin HTTP POST of the PayloadBuilder's output,
// gzip-compressed via klauspost/compress — a direct teacher dependency
// otherwise unexercised in the retrieved teacher files.
package backendclient

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/traylinx/pegcompare/internal/errs"
)

// Client posts analysis payloads to a single configured downstream URL.
type Client struct {
	HTTP *http.Client
	URL  string
}

// New builds a Client targeting url.
func New(httpClient *http.Client, url string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{HTTP: httpClient, URL: url}
}

// Post gzip-compresses body and POSTs it, returning the backend's status
// code on success. Any transport or non-2xx response is a StoreFailure-
// adjacent Internal error, since this collaborator sits outside the
// analysis pipeline's own retry/failover policy.
func (c *Client) Post(ctx context.Context, body []byte) (int, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(body); err != nil {
		return 0, errs.Newf(errs.Internal, "failed to compress backend payload").WithCause(err)
	}
	if err := gw.Close(); err != nil {
		return 0, errs.Newf(errs.Internal, "failed to finalize backend payload compression").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &buf)
	if err != nil {
		return 0, errs.Newf(errs.Internal, "failed to build backend request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, errs.Newf(errs.Internal, "backend post failed").WithCause(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, errs.Newf(errs.Internal, "backend returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
