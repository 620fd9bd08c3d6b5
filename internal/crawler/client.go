package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clantool/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("clantool.crawler")

type Config struct {
	// RosterUrl and ClanUrl contain a `{clan}` placeholder, ProfileUrl an `{id}` one.
	RosterUrl         string  `json:"roster_url"`
	ClanUrl           string  `json:"clan_url"`
	ProfileUrl        string  `json:"profile_url"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Retries           int     `json:"retries"`
}

// Client fetches raw payloads, it knows nothing about their contents.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     Config
}

func NewClient(cfg Config, tel telemetry.API) *Client {
	client := resty.New()
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}
	if cfg.Retries > 0 {
		client.SetRetryCount(cfg.Retries)
	}
	telemetry.InstrumentResty(client, tel)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
	}
}

func fillTemplate(template, key string, value int32) string {
	return strings.ReplaceAll(template, "{"+key+"}", strconv.FormatInt(int64(value), 10))
}

func (c *Client) get(ctx context.Context, name, url string) (body []byte, err error) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.String("url", url)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if url == "" {
		return nil, fmt.Errorf("%s: url is not configured", name)
	}
	err = c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%s: GET %s: %s", name, url, res.Status())
	}
	return res.Body(), nil
}

func (c *Client) FetchRoster(ctx context.Context, clan int32) ([]byte, error) {
	return c.get(ctx, "FetchRoster", fillTemplate(c.cfg.RosterUrl, "clan", clan))
}

func (c *Client) FetchClan(ctx context.Context, clan int32) ([]byte, error) {
	return c.get(ctx, "FetchClan", fillTemplate(c.cfg.ClanUrl, "clan", clan))
}

func (c *Client) FetchProfile(ctx context.Context, id int32) ([]byte, error) {
	return c.get(ctx, "FetchProfile", fillTemplate(c.cfg.ProfileUrl, "id", id))
}
