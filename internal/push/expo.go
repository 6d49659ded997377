package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const DefaultExpoURL = "https://exp.host/--/api/v2/push/send"

// ExpoProvider posts message batches to the Expo push API. Requests are
// paced by a token bucket so bursts of fan-out stay under the provider's
// rate limit.
type ExpoProvider struct {
	url         string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

type expoResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func NewExpoProvider(url, accessToken string, timeout time.Duration, ratePerSecond float64) *ExpoProvider {
	if url == "" {
		url = DefaultExpoURL
	}
	burst := max(int(ratePerSecond), 1)
	return &ExpoProvider{
		url:         url,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (p *ExpoProvider) SendBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expo push status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	// Per-ticket errors are the provider's concern; only request-level
	// errors fail the batch.
	var parsed expoResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Errors) > 0 {
		return fmt.Errorf("expo push rejected batch: %s: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
	}
	return nil
}
