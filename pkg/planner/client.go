package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rush86999/atomic-scheduler/internal/config"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var tracer = otel.Tracer("github.com/rush86999/atomic-scheduler/pkg/planner")

const (
	solvePath = "/timeTable/user/solve-day"
	// maxBodySize bounds how much of the planner's answer is kept.
	maxBodySize = 1 << 20
)

type ClientImpl struct {
	baseUrl  string
	client   *http.Client
	username string
	password string
}

// NewClient creates a planner client. OAuth2 client credentials are used when configured,
// basic auth otherwise.
func NewClient(ctx context.Context, cfg config.Planner) *ClientImpl {
	base := &http.Client{Timeout: cfg.Timeout}
	c := &ClientImpl{
		baseUrl: strings.TrimRight(cfg.Url, "/"),
		client:  base,
	}
	if cfg.OAuth2.Enabled() {
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientId,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenUrl,
		}
		c.client = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		c.client.Timeout = cfg.Timeout
		log.Infof("planner client uses OAuth2 client credentials from %s", cfg.OAuth2.TokenUrl)
	} else {
		c.username = cfg.Username
		c.password = cfg.Password
	}
	return c
}

func (c *ClientImpl) Submit(ctx context.Context, payload Payload) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "planner.Submit", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submit")
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("planner.request_id", payload.RequestId), attribute.String("host.id", payload.HostId))

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode planner payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+solvePath, bytes.NewReader(body))
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if payload.RequestId != "" {
		req.Header.Set("Idempotency-Key", payload.RequestId)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to call planner: %w", err)
		log.Error(err)
		return Result{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read planner response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(respBody)))
		log.Error(err)
		return Result{}, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	result = Result{StatusCode: resp.StatusCode}
	if json.Valid(respBody) {
		result.Body = respBody
	}
	log.Debugf("planner accepted request %s for host %s with status %d", payload.RequestId, payload.HostId, resp.StatusCode)
	return result, nil
}
