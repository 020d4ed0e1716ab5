package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/resilience"
)

// HTTPOptions configures HTTPProvider.
type HTTPOptions struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// HTTPProvider reads rates from a market-data service exposing
// GET /cap-rate?type=&location= and GET /lending-rate?loan=&ltv=, both
// answering {"rate": <fraction>}.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPProvider creates an HTTPProvider. Requests are throttled to
// RequestsPerSecond (default 10).
func NewHTTPProvider(opts HTTPOptions) *HTTPProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
	}
}

type rateResponse struct {
	Rate float64 `json:"rate"`
}

// MarketCapRate implements Provider.
func (h *HTTPProvider) MarketCapRate(ctx context.Context, pt model.PropertyType, location string) (float64, error) {
	q := url.Values{}
	q.Set("type", string(pt))
	q.Set("location", location)
	return h.getRate(ctx, "/cap-rate", q)
}

// CommercialRate implements Provider.
func (h *HTTPProvider) CommercialRate(ctx context.Context, loanAmount, ltv float64) (float64, error) {
	q := url.Values{}
	q.Set("loan", strconv.FormatFloat(loanAmount, 'f', 0, 64))
	q.Set("ltv", strconv.FormatFloat(ltv, 'f', 4, 64))
	return h.getRate(ctx, "/lending-rate", q)
}

func (h *HTTPProvider) getRate(ctx context.Context, path string, q url.Values) (float64, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return 0, eris.Wrap(err, "market: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return 0, eris.Wrapf(err, "market: build request %s", path)
	}
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "market: GET %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("market: GET %s: status %d", path, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return 0, statusErr
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, eris.Wrapf(err, "market: decode %s", path)
	}
	return body.Rate, nil
}
