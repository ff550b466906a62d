package meetings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/wolfman30/telecare-appointments/internal/observability/metrics"
	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

var meetingsTracer = otel.Tracer("telecare.internal.meetings")

// Client implements Provider against a Zoom-style meetings REST API.
// Whenever the credential cache is in degraded mode the call is served by
// the fallback provider instead of the network.
type Client struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
	tokens     *CredentialCache
	fallback   Provider
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *metrics.ProvisioningMetrics
}

// ClientConfig holds configuration for the meetings client
type ClientConfig struct {
	BaseURL string // e.g. "https://api.zoom.us/v2"
	// Timezone is sent with created meetings for display purposes.
	Timezone  string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// NewClient creates a meetings client. fallback defaults to a
// SimulatedProvider when nil.
func NewClient(cfg ClientConfig, tokens *CredentialCache, fallback Provider, logger *logging.Logger, m *metrics.ProvisioningMetrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("meetings: BaseURL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("meetings: credential cache is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if fallback == nil {
		fallback = NewSimulatedProvider("")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		timezone:   cfg.Timezone,
		httpClient: httpClient,
		tokens:     tokens,
		fallback:   fallback,
		limiter:    limiter,
		logger:     logger,
		metrics:    m,
	}, nil
}

// CreateMeeting schedules a meeting.
// POST /users/me/meetings
func (c *Client) CreateMeeting(ctx context.Context, req CreateMeetingRequest) (*Meeting, error) {
	ctx, span := meetingsTracer.Start(ctx, "meetings.create", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	tok := c.tokens.Token(ctx)
	if tok.Simulated {
		span.SetAttributes(attribute.Bool("meetings.simulated", true))
		c.logger.Info("meeting provider degraded, simulating meeting", "topic", req.Topic)
		return c.fallback.CreateMeeting(ctx, req)
	}

	payload := createMeetingPayload{
		Topic:     req.Topic,
		Type:      scheduledMeetingType,
		StartTime: req.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:  req.DurationMinutes,
		Timezone:  c.timezone,
		Agenda:    req.Agenda,
		Settings:  defaultSettings(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ProviderError{Op: "create meeting", Err: err}
	}

	var resp meetingResponse
	if err := c.do(ctx, tok, "create_meeting", "", http.MethodPost, "/users/me/meetings", body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create meeting failed")
		return nil, err
	}
	meeting := resp.toMeeting()
	span.SetAttributes(attribute.String("meetings.id", meeting.ID))
	return meeting, nil
}

// GetMeeting retrieves meeting metadata.
// GET /meetings/{id}
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*Meeting, error) {
	ctx, span := meetingsTracer.Start(ctx, "meetings.get", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("meetings.id", meetingID))

	tok := c.tokens.Token(ctx)
	if tok.Simulated || IsSimulatedMeetingID(meetingID) {
		return c.fallback.GetMeeting(ctx, meetingID)
	}

	var resp meetingResponse
	if err := c.do(ctx, tok, "get_meeting", meetingID, http.MethodGet, "/meetings/"+meetingID, nil, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get meeting failed")
		return nil, err
	}
	return resp.toMeeting(), nil
}

// DeleteMeeting removes a meeting. Simulated meetings and degraded mode
// make this a local no-op.
// DELETE /meetings/{id}
func (c *Client) DeleteMeeting(ctx context.Context, meetingID string) error {
	ctx, span := meetingsTracer.Start(ctx, "meetings.delete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("meetings.id", meetingID))

	if IsSimulatedMeetingID(meetingID) {
		return c.fallback.DeleteMeeting(ctx, meetingID)
	}
	tok := c.tokens.Token(ctx)
	if tok.Simulated {
		c.logger.Info("meeting provider degraded, skipping meeting deletion", "meeting_id", meetingID)
		return nil
	}

	if err := c.do(ctx, tok, "delete_meeting", meetingID, http.MethodDelete, "/meetings/"+meetingID, nil, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete meeting failed")
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, tok Token, op, meetingID, method, path string, body []byte, out any) error {
	opName := strings.ReplaceAll(op, "_", " ")
	if err := c.limiter.Wait(ctx); err != nil {
		return &ProviderError{Op: opName, MeetingID: meetingID, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &ProviderError{Op: opName, MeetingID: meetingID, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+tok.Value)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveProviderLatency(op, "error", time.Since(start).Seconds())
		return &ProviderError{Op: opName, MeetingID: meetingID, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.metrics.ObserveProviderLatency(op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Op: opName, MeetingID: meetingID, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := mapHTTPError(opName, meetingID, resp.StatusCode, respBody)
		if errors.Is(perr, ErrUnauthorized) {
			c.tokens.Invalidate()
		}
		return perr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Op: opName, MeetingID: meetingID, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (r meetingResponse) toMeeting() *Meeting {
	m := &Meeting{
		ID:              strconv.FormatInt(r.ID, 10),
		JoinURL:         r.JoinURL,
		StartURL:        r.StartURL,
		Password:        r.Password,
		Topic:           r.Topic,
		DurationMinutes: r.Duration,
	}
	if t, err := time.Parse(time.RFC3339, r.StartTime); err == nil {
		m.StartTime = t
	}
	return m
}
