package routesource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishigakitour/pickup/internal/provider/resilience"
	"github.com/ishigakitour/pickup/internal/schedule"
)

const (
	// RemoteName identifies the optimizer in the provider registry.
	RemoteName = "remote-optimizer"

	// DefaultRemoteTimeout bounds a single optimizer call.
	DefaultRemoteTimeout = 15 * time.Second

	optimizePath = "/api/ishigaki/optimize"

	// maxResponseBytes caps how much of an optimizer response is read.
	maxResponseBytes = 4 << 20
)

// HTTPDoer executes HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteConfig configures RemoteOptimizer.
type RemoteConfig struct {
	// BaseURL of the optimizer service (required).
	BaseURL string

	// HTTPClient overrides the resilient client (optional).
	HTTPClient HTTPDoer

	// Timeout per attempt (default: 15s).
	Timeout time.Duration

	// Registry receives health updates (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// RemoteOptimizer asks the route optimizer service for a stop sequence.
type RemoteOptimizer struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ Source = (*RemoteOptimizer)(nil)

// NewRemoteOptimizer creates a RemoteOptimizer.
func NewRemoteOptimizer(cfg RemoteConfig) *RemoteOptimizer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultRemoteTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(RemoteName)
		clientCfg.Timeout = timeout
		clientCfg.MaxRetries = 2
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &RemoteOptimizer{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

func (o *RemoteOptimizer) Name() string { return RemoteName }

func (o *RemoteOptimizer) Kind() Kind { return KindRemote }

// Fetch posts the tour to the optimizer and maps the returned sequence
// back onto the request guests. The optimizer's compliance labels are
// ignored; stops are classified locally.
func (o *RemoteOptimizer) Fetch(ctx context.Context, req Request) (*Result, error) {
	if len(req.Guests) == 0 {
		return nil, ErrNoGuests
	}
	if o.baseURL == "" {
		return nil, o.fail("NOT_CONFIGURED", "optimizer base URL is not configured", 0, ErrUnavailable)
	}

	body, err := json.Marshal(toOptimizeRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshaling optimize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+optimizePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating optimize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	o.logger.Debug().
		Str("date", req.Date).
		Int("guests", len(req.Guests)).
		Int("vehicles", len(req.Vehicles)).
		Msg("requesting optimized route")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		o.logger.Warn().Err(err).Msg("optimizer request failed")
		return nil, o.fail("REQUEST_FAILED", "failed to reach route optimizer", 0, fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, o.fail("READ_FAILED", "reading optimizer response", resp.StatusCode, fmt.Errorf("%w: %w", ErrUnavailable, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, o.statusError(resp.StatusCode, respBody)
	}

	var decoded optimizeResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, o.fail("DECODE_FAILED", "optimizer response is not valid JSON", resp.StatusCode, ErrInvalidResponse)
	}
	if !decoded.Success {
		msg := firstNonEmpty(decoded.Message, decoded.Detail, "optimizer reported failure")
		return nil, o.fail("NOT_SUCCESSFUL", msg, resp.StatusCode, ErrRejected)
	}

	stops, err := o.toStops(req.Guests, decoded.Route)
	if err != nil {
		return nil, err
	}

	o.logger.Debug().Int("stops", len(stops)).Msg("received optimized route")

	return &Result{
		Kind:            KindRemote,
		Stops:           stops,
		TotalDistanceKm: decoded.TotalDistance,
		DurationLabel:   decoded.EstimatedDuration,
		EfficiencyScore: decoded.EfficiencyScore,
	}, nil
}

func (o *RemoteOptimizer) toStops(guests []schedule.Guest, route []stopRecord) ([]schedule.ScheduledStop, error) {
	idx := newGuestIndex(guests)
	seen := make(map[int]bool, len(route))
	stops := make([]schedule.ScheduledStop, 0, len(route))

	for i, rec := range route {
		gi, ok := idx.lookup(rec)
		if !ok {
			return nil, o.fail("UNKNOWN_GUEST",
				fmt.Sprintf("route[%d] names unknown guest %q at %q", i, rec.Name, rec.HotelName), 0, ErrInvalidResponse)
		}
		if seen[gi] {
			return nil, o.fail("DUPLICATE_GUEST",
				fmt.Sprintf("route[%d] repeats guest %q", i, rec.Name), 0, ErrInvalidResponse)
		}
		seen[gi] = true

		at, err := schedule.ParseTimeOfDay(rec.PickupTime)
		if err != nil {
			return nil, o.fail("BAD_PICKUP_TIME",
				fmt.Sprintf("route[%d] has malformed pickup time %q", i, rec.PickupTime), 0, ErrInvalidResponse)
		}
		stops = append(stops, schedule.ScheduledStop{Guest: guests[gi], PickupTime: at})
	}

	if len(seen) < len(guests) {
		var missing []string
		for i, g := range guests {
			if !seen[i] {
				missing = append(missing, firstNonEmpty(g.ID, g.Name))
			}
		}
		return nil, o.fail("MISSING_GUESTS",
			fmt.Sprintf("route omits %d of %d guests: %s", len(missing), len(guests), strings.Join(missing, ", ")), 0, ErrInvalidResponse)
	}
	return stops, nil
}

func (o *RemoteOptimizer) statusError(status int, body []byte) error {
	var decoded optimizeResponse
	msg := ""
	if json.Unmarshal(body, &decoded) == nil {
		msg = firstNonEmpty(decoded.Detail, decoded.Message)
	}

	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return o.fail(fmt.Sprintf("SERVER_%d", status),
			firstNonEmpty(msg, "route optimizer is temporarily unavailable"), status, ErrUnavailable)
	default:
		return o.fail(fmt.Sprintf("HTTP_%d", status),
			firstNonEmpty(msg, fmt.Sprintf("route optimizer returned status %d", status)), status, ErrRejected)
	}
}

func (o *RemoteOptimizer) fail(code, msg string, status int, err error) *Error {
	return &Error{Source: RemoteName, Code: code, Message: msg, StatusCode: status, Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
