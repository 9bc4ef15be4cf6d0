package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/clavet/spotmean/internal/errors"
	"github.com/clavet/spotmean/internal/logging"
)

// CoinbaseSource fetches the BTC spot price from the Coinbase REST API.
// It is stateless apart from a connection-reusing HTTP client and is safe
// for concurrent use by multiple workers.
type CoinbaseSource struct {
	url    string
	client *http.Client
	logger logging.Logger
}

// coinbaseResponse represents the spot-price API response body:
// {"data": {"amount": "64123.45", ...}}.
type coinbaseResponse struct {
	Data struct {
		Amount string `json:"amount"`
	} `json:"data"`
}

// NewCoinbaseSource creates a Coinbase spot-price sampler.
//
// Parameters:
//   - url: The spot-price endpoint to query.
//   - timeout: Per-request timeout; zero disables the timeout entirely, in
//     which case a hung request blocks until the transport gives up.
//   - logger: Destination for debug-level fetch diagnostics.
func NewCoinbaseSource(url string, timeout time.Duration, logger logging.Logger) *CoinbaseSource {
	return &CoinbaseSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// FetchOne performs one HTTP GET against the spot-price endpoint and parses
// the quoted amount. Every failure mode is reported as a FetchError so the
// caller can decide to skip the sample.
func (s *CoinbaseSource) FetchOne(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, apperrors.FetchError{URL: s.url, Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, apperrors.FetchError{URL: s.url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, apperrors.FetchError{URL: s.url, Cause: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	var message coinbaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return 0, apperrors.FetchError{URL: s.url, Cause: fmt.Errorf("decode response: %w", err)}
	}

	amount, err := strconv.ParseFloat(message.Data.Amount, 64)
	if err != nil {
		s.logger.Debug("unparsable amount in feed response", logging.String("amount", message.Data.Amount))
		return 0, apperrors.FetchError{URL: s.url, Cause: fmt.Errorf("parse amount %q: %w", message.Data.Amount, err)}
	}

	return amount, nil
}
