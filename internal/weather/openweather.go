package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultOpenWeatherURL is the One Call historical endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/onecall/timemachine"

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response is echoed into errors.
	maxErrorBody = 256

	// maxResponseBody guards against a runaway upstream.
	maxResponseBody = 1 << 20
)

// OpenWeatherConfig configures the OpenWeather client.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// OpenWeather queries the One Call timemachine API.
//
// One request is made per call: dt is set to start, and the API answers
// with the hourly history of start's UTC day. Samples outside [start, end]
// are dropped. The "current" block, when present and inside the range, is
// added as a sample at its own timestamp.
type OpenWeather struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenWeather creates an OpenWeather client.
func NewOpenWeather(cfg OpenWeatherConfig) (*OpenWeather, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenWeatherURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenWeather{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  client,
	}, nil
}

type owmRain struct {
	OneHour *float64 `json:"1h"`
}

type owmPoint struct {
	Dt   int64    `json:"dt"`
	Rain *owmRain `json:"rain"`
}

type owmResponse struct {
	Current *owmPoint  `json:"current"`
	Hourly  []owmPoint `json:"hourly"`
}

// HourlyRainfall implements Provider.
func (c *OpenWeather) HourlyRainfall(ctx context.Context, latitude, longitude float64, start, end time.Time) ([]Sample, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("dt", strconv.FormatInt(start.Unix(), 10))
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Do's error includes the URL, which carries the API key.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequestFailed, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort detail
		return nil, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(b))
	}

	var out owmResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return out.samples(start, end)
}

func (r owmResponse) samples(start, end time.Time) ([]Sample, error) {
	if r.Hourly == nil {
		return nil, fmt.Errorf("%w: no hourly data", ErrMalformedResponse)
	}

	points := r.Hourly
	if r.Current != nil {
		points = append(points, *r.Current)
	}

	samples := make([]Sample, 0, len(points))
	for _, p := range points {
		if p.Dt <= 0 {
			return nil, fmt.Errorf("%w: missing timestamp", ErrMalformedResponse)
		}
		ts := time.Unix(p.Dt, 0).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}

		mm := 0.0
		if p.Rain != nil && p.Rain.OneHour != nil {
			mm = *p.Rain.OneHour
		}
		if mm < 0 {
			return nil, fmt.Errorf("%w: negative rainfall %v at %d", ErrMalformedResponse, mm, p.Dt)
		}
		samples = append(samples, Sample{Time: ts, MM: mm})
	}
	return samples, nil
}

// redact strips the API key from an error message.
func redact(err error, secret string) string {
	if secret == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), secret, "REDACTED")
}
