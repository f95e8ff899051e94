package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

const (
	maxErrorSnippet = 200
	maxErrorBody    = 1 << 20
	unknownError    = "Unknown error"
)

// sanitizeErrorBody turns a non-2xx response body into a short message.
// Structured bodies yield their error message; anything else is cut to the
// first maxErrorSnippet characters.
func sanitizeErrorBody(body []byte) string {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return snippet(body)
	}

	raw, ok := parsed["error"]
	if !ok {
		return unknownError
	}
	var obj struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message == nil {
			return unknownError
		}
		return *obj.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return snippet(raw)
}

// snippet returns at most maxErrorSnippet characters of b.
func snippet(b []byte) string {
	text := strings.TrimSpace(string(b))
	if text == "" {
		return unknownError
	}
	if r := []rune(text); len(r) > maxErrorSnippet {
		return string(r[:maxErrorSnippet])
	}
	return text
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// transportError classifies a failed round trip.
func transportError(provider string, err error) *ProviderError {
	switch {
	case isTimeout(err):
		return &ProviderError{Provider: provider, Message: provider + " API request timed out", Timeout: true, Err: err}
	case errors.Is(err, context.Canceled):
		return &ProviderError{Provider: provider, Message: provider + " API request canceled", Err: err}
	default:
		return &ProviderError{Provider: provider, Message: provider + " API request failed", Err: err}
	}
}

// postJSON sends payload as JSON and decodes a 200 response into out.
// Every failure is returned as a *ProviderError.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &ProviderError{Provider: provider, Message: provider + " embedding failed: marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &ProviderError{Provider: provider, Message: provider + " embedding failed: create request", Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return transportError(provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API returned %d: %s", provider, resp.StatusCode, sanitizeErrorBody(respBody)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return transportError(provider, err)
		}
		return &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Message: provider + " embedding failed: decode response", Err: err}
	}
	return nil
}
