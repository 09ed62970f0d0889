package jokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"joke-plugin/internal/config"
	"joke-plugin/internal/models"
	"joke-plugin/pkg/logger"
)

const (
	DefaultURL   = "https://v2.jokeapi.dev/joke/Any?type=single&safe-mode"
	FallbackJoke = "Why don't scientists trust atoms? Because they make up everything!"

	defaultUserAgent = "joke-plugin/1.0"
	maxBodySize      = 64 << 10
)

var (
	ErrAPIError     = errors.New("joke api returned an error")
	ErrNoSingleJoke = errors.New("no single-line joke found")
)

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("joke api returned status %d", e.StatusCode)
}

// Source fetches one-line jokes and absorbs every failure into a fallback.
type Source struct {
	url       string
	userAgent string
	fallback  string
	client    *http.Client
}

type Option func(*Source)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

func WithURL(url string) Option {
	return func(s *Source) {
		if url != "" {
			s.url = url
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(s *Source) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

func WithFallback(joke string) Option {
	return func(s *Source) {
		if joke != "" {
			s.fallback = joke
		}
	}
}

func New(opts ...Option) *Source {
	s := &Source{
		url:       DefaultURL,
		userAgent: defaultUserAgent,
		fallback:  FallbackJoke,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewFromConfig builds a Source from the joke_api config section.
func NewFromConfig(cfg config.JokeAPIConfig, opts ...Option) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	base := []Option{
		WithURL(cfg.URL),
		WithUserAgent(cfg.UserAgent),
		WithFallback(cfg.Fallback),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	}

	return New(append(base, opts...)...)
}

// FetchJoke never returns an error; failures are logged and replaced by
// the fallback joke.
func (s *Source) FetchJoke(ctx context.Context) string {
	joke, err := s.Fetch(ctx)
	if err != nil {
		logger.Warn("Failed to fetch joke, using fallback",
			logger.Err(err),
			logger.String("url", s.url),
		)
		return s.fallback
	}
	return joke
}

func (s *Source) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call joke api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var data models.JokeAPIResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	joke, err := extractJoke(&data)
	if err != nil {
		return "", err
	}

	logger.Debug("Fetched joke", logger.Int("length", len(joke)))
	return joke, nil
}

func (s *Source) IsFallback(joke string) bool {
	return joke == s.fallback
}

func (s *Source) Fallback() string {
	return s.fallback
}

func extractJoke(data *models.JokeAPIResponse) (string, error) {
	if data.Error {
		return "", ErrAPIError
	}

	if data.Type == models.JokeTypeSingle && data.Joke != "" {
		return data.Joke, nil
	}

	return "", ErrNoSingleJoke
}
