package forecasting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"TourCast/internal/domain/models"
	domsvc "TourCast/internal/domain/service"
	"TourCast/pkg/config"
	xhttp "TourCast/pkg/http"
	"TourCast/pkg/util"
)

// HTTPServiceBase centralizes client construction and JSON POST handling
// for engines that live behind an HTTP sidecar.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg config.ForecastConfig, opts ...xhttp.ClientOption) *HTTPServiceBase {
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.RemoteURL, "/"),
		client:  xhttp.NewClient(opts...),
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("forecast http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// PostJSONWithRetry retries transient failures up to attempts times.
// Client errors (4xx) and context cancellation are returned immediately.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return b.PostJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = b.PostJSON(ctx, path, payload, dest)
		if err == nil || !retryable(err) || i == attempts {
			return err
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return true
}

// RemoteEngine delegates fitting to a Prophet-compatible sidecar.
type RemoteEngine struct {
	base     *HTTPServiceBase
	settings Settings
	attempts int
}

// NewRemoteEngine creates an engine posting to cfg.RemoteURL.
func NewRemoteEngine(cfg config.ForecastConfig, opts ...xhttp.ClientOption) *RemoteEngine {
	return &RemoteEngine{
		base:     NewHTTPServiceBase(cfg, opts...),
		settings: SettingsFromConfig(cfg),
		attempts: 2,
	}
}

func (e *RemoteEngine) Name() string { return "remote" }

type remotePoint struct {
	DS string  `json:"ds"`
	Y  float64 `json:"y"`
}

type remoteReq struct {
	Granularity string        `json:"granularity"`
	Horizon     int           `json:"horizon"`
	Model       ModelSpec     `json:"model"`
	Series      []remotePoint `json:"series"`
}

type remoteForecastPoint struct {
	DS        string  `json:"ds"`
	YHat      float64 `json:"yhat"`
	YHatLower float64 `json:"yhat_lower"`
	YHatUpper float64 `json:"yhat_upper"`
}

type remoteResp struct {
	Forecast []remoteForecastPoint `json:"forecast"`
}

// Fit implements domsvc.ForecastEngine. Output shape is checked by the Forecaster.
func (e *RemoteEngine) Fit(ctx context.Context, series []models.TimeSeriesPoint, g models.Granularity, horizon int) ([]models.ForecastPoint, error) {
	req := remoteReq{
		Granularity: string(g),
		Horizon:     horizon,
		Model:       Preset(g, e.settings),
		Series:      make([]remotePoint, len(series)),
	}
	for i, p := range series {
		req.Series[i] = remotePoint{DS: p.Timestamp.Format(util.DateLayout), Y: p.Value}
	}

	var resp remoteResp
	if err := e.base.PostJSONWithRetry(ctx, "/forecast", req, &resp, e.attempts); err != nil {
		return nil, fmt.Errorf("post forecast: %w", err)
	}

	out := make([]models.ForecastPoint, 0, len(resp.Forecast))
	for i, p := range resp.Forecast {
		ts, ok := util.ParseDate(p.DS)
		if !ok {
			return nil, fmt.Errorf("malformed timestamp %q at index %d", p.DS, i)
		}
		out = append(out, models.ForecastPoint{
			Timestamp:     ts,
			PointEstimate: p.YHat,
			LowerBound:    p.YHatLower,
			UpperBound:    p.YHatUpper,
		})
	}
	return out, nil
}

var _ domsvc.ForecastEngine = (*RemoteEngine)(nil)
