package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const defaultBaseURL = "https://api.sparkpost.com/api/v1"

// SparkPost sends transmissions through the SparkPost HTTP API. The
// underlying HTTP client is a long-lived shared resource, initialized
// lazily on first send and never torn down per request.
type SparkPost struct {
	apiKey  string
	baseURL string

	once   sync.Once
	client *http.Client
}

// NewSparkPost verifies configuration once at construction; the connection
// itself is only established when the first send happens.
func NewSparkPost(apiKey, baseURL string) (*SparkPost, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("sparkpost: api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &SparkPost{
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

func (s *SparkPost) httpClient() *http.Client {
	s.once.Do(func() {
		s.client = &http.Client{Timeout: 30 * time.Second}
	})
	return s.client
}

// Send submits one transmission and returns the provider transmission ID.
func (s *SparkPost) Send(ctx context.Context, msg *Message) (string, error) {
	content := map[string]any{
		"from":    map[string]string{"email": msg.From},
		"subject": msg.Subject,
	}
	if msg.IsHTML {
		content["html"] = msg.Body
	} else {
		content["text"] = msg.Body
	}

	transmission := map[string]any{
		"recipients": []map[string]any{
			{"address": map[string]string{"email": msg.To}},
		},
		"content": content,
	}

	payload, err := json.Marshal(transmission)
	if err != nil {
		return "", fmt.Errorf("marshal transmission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transmissions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("sparkpost request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("sparkpost status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Results struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode sparkpost response: %w", err)
	}
	if result.Results.ID == "" {
		return "", fmt.Errorf("sparkpost response missing transmission id")
	}

	return result.Results.ID, nil
}
