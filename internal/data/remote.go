package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

// RemoteClient downloads raw data files, typically from GitHub.
type RemoteClient struct {
	Client *http.Client
	logger *slog.Logger
}

func NewRemoteClient(logger *slog.Logger) *RemoteClient {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RemoteClient{
		Client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Fetch downloads rawURL and parses it by extension (.csv or .json).
// token, when set, is sent as a GitHub token.
func (c *RemoteClient) Fetch(ctx context.Context, rawURL, token string) (*Table, error) {
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	if ext != ".csv" && ext != ".json" {
		c.logger.Error("unknown file extension", "url", rawURL)
		return nil, fmt.Errorf("unsupported file extension %q", ext)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3.raw")
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Error("remote request failed", "url", rawURL, "err", err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var t *Table
	if ext == ".csv" {
		t, err = ParseCSVTable(bytes.NewReader(raw))
	} else {
		t, err = ParseJSONTable(bytes.NewReader(raw))
	}
	if err != nil {
		c.logger.Error("failed to parse remote data", "url", rawURL, "err", err)
		return nil, err
	}
	c.logger.Info("fetched remote table", "url", rawURL, "rows", len(t.Rows), "columns", len(t.Columns))
	return t, nil
}
