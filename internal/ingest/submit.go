package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Submitter forwards dropped files into the capture pipeline. With a
// vendor URL configured the file goes to the OCR vendor, which extracts
// fields and calls back into the capture endpoint itself; without one the
// file is wrapped in a bare submission and posted directly, leaving every
// extracted field for the reviewer.
type Submitter struct {
	captureURL string
	vendorURL  string
	apiKey     string
	http       *http.Client
	logger     *slog.Logger
}

func NewSubmitter(captureURL, vendorURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Submitter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		captureURL: captureURL,
		vendorURL:  vendorURL,
		apiKey:     apiKey,
		http:       httpClient,
		logger:     logger,
	}
}

// SubmitFile sends one inbox file on its way.
func (s *Submitter) SubmitFile(ctx context.Context, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)

	if s.vendorURL != "" {
		return s.sendToVendor(ctx, name, contents)
	}
	return s.sendToCapture(ctx, name, contents)
}

func (s *Submitter) sendToVendor(ctx context.Context, name string, contents []byte) error {
	body := map[string]any{
		"filename": name,
		"contents": base64.StdEncoding.EncodeToString(contents),
	}
	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}
	return s.postJSON(ctx, s.vendorURL, body, headers)
}

func (s *Submitter) sendToCapture(ctx context.Context, name string, contents []byte) error {
	body := map[string]any{
		"originalfile": []map[string]string{
			{"filename": name, "contents": base64.StdEncoding.EncodeToString(contents)},
		},
	}
	return s.postJSON(ctx, s.captureURL, body, nil)
}

func (s *Submitter) postJSON(ctx context.Context, url string, body any, headers map[string]string) error {
	start := time.Now()
	bs, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Error("ingest.submit.send_error", "url", url, "error", err)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("ingest.submit.body_close_error", "error", err)
		}
	}()
	raw, _ := io.ReadAll(resp.Body)

	s.logger.Info("ingest.submit.response",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("submission rejected with status %d", resp.StatusCode)
	}
	return nil
}
