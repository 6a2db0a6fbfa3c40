package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// GetAndDecode performs an HTTP GET request and decodes the JSON response.
// The context carries the caller's deadline into the request so a slow
// server cannot outlive it. Non-200 responses come back as *HTTPError so
// retry policies can classify them.
func GetAndDecode(ctx context.Context, client *http.Client, url string, target any, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform GET request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: res.StatusCode, Message: res.Status}
	}

	if err := json.NewDecoder(res.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode json response: %w", err)
	}

	slog.Debug("Successfully fetched and decoded", "url", url)
	return nil
}
