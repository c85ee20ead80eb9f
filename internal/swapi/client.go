package swapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/models"
)

const (
	DEFAULT_URL = config.DEFAULT_BASE_URL
	API_PATH    = "api"
)

const instrumentationName = "github.com/mark-c-hall/swapi-characters/internal/swapi"

var (
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
)

func init() {
	meter := otel.Meter(instrumentationName)

	var err error
	requestCounter, err = meter.Int64Counter("swapi.client.requests",
		metric.WithDescription("Requests issued to the Star Wars API, by status."))
	if err != nil {
		otel.Handle(err)
	}
	requestDuration, err = meter.Float64Histogram("swapi.client.duration",
		metric.WithDescription("Latency of requests to the Star Wars API."),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}
}

type Client struct {
	HTTPClient  http.Client
	APIURL      string
	UserAgent   string
	Limiter     *rate.Limiter
	MaxRetries  int
	BaseBackoff time.Duration
}

type FilmResponse struct {
	Title      string    `json:"title"`
	EpisodeID  int       `json:"episode_id"`
	Characters *[]string `json:"characters"`
}

type CharacterResponse struct {
	Name *string `json:"name"`
}

func NewClient(cfg config.Config) *Client {
	limit := rate.Inf
	if cfg.Client.Limit > 0 {
		limit = rate.Limit(cfg.Client.Limit)
	}
	burst := max(cfg.Client.Burst, 1)

	client := Client{
		HTTPClient: http.Client{
			Timeout:   cfg.Client.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		APIURL:      cfg.Client.BaseURL,
		UserAgent:   cfg.Client.UserAgent,
		Limiter:     rate.NewLimiter(limit, burst),
		MaxRetries:  cfg.Client.MaxRetries,
		BaseBackoff: cfg.Client.BaseBackoff,
	}
	return &client
}

// FilmURL returns the resource URL of a film, including the trailing slash
// the API expects.
func (c *Client) FilmURL(filmID string) string {
	return fmt.Sprintf("%s/%s/films/%s/", c.APIURL, API_PATH, filmID)
}

func (c *Client) GetFilm(ctx context.Context, filmID string) (*models.Film, error) {
	url := c.FilmURL(filmID)

	var APIResponse FilmResponse
	if err := c.getJSON(ctx, url, &APIResponse); err != nil {
		return nil, fmt.Errorf("error getting film %s: %w", filmID, err)
	}

	if APIResponse.Characters == nil {
		return nil, &MalformedResponseError{URL: url, Reason: "missing characters field"}
	}
	for i, characterURL := range *APIResponse.Characters {
		if !isAbsoluteHTTP(characterURL) {
			return nil, &MalformedResponseError{
				URL:    url,
				Reason: fmt.Sprintf("character %d has invalid url %q", i, characterURL),
			}
		}
	}

	return &models.Film{
		ID:         filmID,
		Title:      APIResponse.Title,
		EpisodeID:  APIResponse.EpisodeID,
		Characters: *APIResponse.Characters,
	}, nil
}

func (c *Client) GetCharacter(ctx context.Context, characterURL string) (*models.Character, error) {
	var APIResponse CharacterResponse
	if err := c.getJSON(ctx, characterURL, &APIResponse); err != nil {
		return nil, fmt.Errorf("error getting character: %w", err)
	}

	if APIResponse.Name == nil {
		return nil, &MalformedResponseError{URL: characterURL, Reason: "missing name field"}
	}

	return &models.Character{URL: characterURL, Name: *APIResponse.Name}, nil
}

func (c *Client) GetCharacterName(ctx context.Context, characterURL string) (string, error) {
	character, err := c.GetCharacter(ctx, characterURL)
	if err != nil {
		return "", err
	}
	return character.Name, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.getHTTP(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &MalformedResponseError{URL: url, Reason: "invalid json body", Err: err}
	}
	return nil
}

func (c *Client) getHTTP(ctx context.Context, url string) (*http.Response, error) {
	for attempt := range c.MaxRetries {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating http request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		start := time.Now()
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			record(ctx, start, "error")
			return nil, &TransportError{URL: url, Err: err}
		}
		record(ctx, start, strconv.Itoa(resp.StatusCode))

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			if attempt == c.MaxRetries-1 {
				break
			}

			backoff := c.BaseBackoff << attempt
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
		}
		return resp, nil
	}

	return nil, fmt.Errorf("exceeded %d attempts due to rate limiting: %w",
		c.MaxRetries, &StatusError{URL: url, StatusCode: http.StatusTooManyRequests})
}

func record(ctx context.Context, start time.Time, status string) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	requestCounter.Add(ctx, 1, attrs)
	requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
