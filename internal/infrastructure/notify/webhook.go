package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// StatusError reports a non-2xx webhook response together with a body excerpt.
type StatusError struct {
	Channel string
	Status  string
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s webhook %s: %s", e.Channel, e.Status, e.Body)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

func postJSON(ctx context.Context, client *http.Client, channel, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(client, channel, req)
}

func do(client *http.Client, channel string, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Channel: channel, Status: resp.Status, Body: string(excerpt)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
