package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// GetJSON issues a GET and decodes the response body as JSON into out.
// Subject to the idempotent-GET retry policy in Session.Do.
func (s *Session) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := s.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return statusError(http.MethodGet, path, resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetBytes issues a GET and returns the raw response body, used for the
// bootstrap fetch since that payload is handed to internal/model
// directly rather than decoded here.
func (s *Session) GetBytes(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, statusError(http.MethodGet, path, resp.StatusCode, b)
	}
	return io.ReadAll(resp.Body)
}

// PatchJSON issues a PATCH with a JSON-encoded body, not retried (not
// idempotent per spec.md §7).
func (s *Session) PatchJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := s.Do(ctx, http.MethodPatch, path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return statusError(http.MethodPatch, path, resp.StatusCode, b)
	}
	return nil
}

// PostJSON issues a POST with a JSON-encoded body, not retried.
func (s *Session) PostJSON(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := s.Do(ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return statusError(http.MethodPost, path, resp.StatusCode, b)
	}
	return nil
}
