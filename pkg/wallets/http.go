package wallets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/martinw82/memeforge-09062025/pkg/constants"
)

// postJSON is a shared helper for JSON POST round trips with consistent
// error handling, used by the HTTP-backed transports.
func postJSON(ctx context.Context, client *http.Client, url string, body interface{}, headers map[string]string, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, int64(constants.MaxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(limitedReader)
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       bodyBytes,
		}
	}

	if result != nil {
		if err := json.NewDecoder(limitedReader).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// getJSON performs a GET round trip with the same error handling as postJSON.
func getJSON(ctx context.Context, client *http.Client, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, int64(constants.MaxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(limitedReader)
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       bodyBytes,
		}
	}

	if result != nil {
		if err := json.NewDecoder(limitedReader).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// HTTPError represents an HTTP error with status code and response body.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if len(e.Body) > 0 {
		var errResp struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.Unmarshal(e.Body, &errResp); err == nil {
			if errResp.Details != "" {
				return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, errResp.Error, errResp.Details)
			}
			if errResp.Error != "" {
				return fmt.Sprintf("HTTP %d: %s", e.StatusCode, errResp.Error)
			}
		}
		return fmt.Sprintf("HTTP %d: %s - %s", e.StatusCode, e.Status, string(e.Body))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
