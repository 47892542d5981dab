// Package opentdb fetches multiple-choice questions from an Open Trivia DB
// compatible provider.
package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL        = "https://opentdb.com"
	DefaultMinInterval    = 5 * time.Second
	DefaultBaseDelay      = 3 * time.Second
	DefaultRateLimitDelay = 10 * time.Second
	DefaultTimeout        = 15 * time.Second
)

// Provider response codes.
const (
	codeSuccess           = 0
	codeNoResults         = 1
	codeInvalidParameters = 2
	codeRateLimit         = 5
)

type Config struct {
	BaseURL string
	// MinInterval spaces requests. Zero means DefaultMinInterval; negative disables pacing.
	MinInterval    time.Duration
	Timeout        time.Duration
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
}

// Client talks to the provider. Each client owns its own request limiter, so
// two clients never share pacing state.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	baseDelay      time.Duration
	rateLimitDelay time.Duration
	limiter        *limiter
	log            logrus.FieldLogger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	switch {
	case cfg.MinInterval == 0:
		cfg.MinInterval = DefaultMinInterval
	case cfg.MinInterval < 0:
		cfg.MinInterval = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = DefaultRateLimitDelay
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseDelay:      cfg.BaseDelay,
		rateLimitDelay: cfg.RateLimitDelay,
		limiter:        newLimiter(cfg.MinInterval),
		log:            log.WithField("component", "opentdb"),
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type questionsResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []rawQuestion `json:"results"`
}

type rawQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Category is a provider category usable as SessionOptions.Category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type categoriesResponse struct {
	TriviaCategories []Category `json:"trivia_categories"`
}

// Fetch performs a single request for opts.Count multiple-choice questions.
func (c *Client) Fetch(ctx context.Context, opts domain.SessionOptions) ([]domain.Question, error) {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(opts.Count))
	q.Set("type", "multiple")
	if opts.Category > 0 {
		q.Set("category", strconv.Itoa(opts.Category))
	}
	if opts.Difficulty != domain.DifficultyAny {
		q.Set("difficulty", string(opts.Difficulty))
	}

	var body questionsResponse
	if err := c.getJSON(ctx, "/api.php?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	switch body.ResponseCode {
	case codeSuccess:
	case codeNoResults:
		return nil, domain.ErrNoResults
	case codeInvalidParameters:
		return nil, domain.ErrInvalidParameters
	case codeRateLimit:
		return nil, domain.ErrRateLimited
	default:
		return nil, &domain.ProviderError{Code: body.ResponseCode}
	}
	if len(body.Results) == 0 {
		return nil, domain.ErrNoResults
	}
	return c.normalize(body.Results), nil
}

// FetchWithRetry calls Fetch up to maxAttempts times. Only rate limiting is
// retried; the wait before attempt k+1 is max(k*BaseDelay, RateLimitDelay).
func (c *Client) FetchWithRetry(ctx context.Context, opts domain.SessionOptions, maxAttempts int) ([]domain.Question, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		qs, err := c.Fetch(ctx, opts)
		if err == nil {
			return qs, nil
		}
		lastErr = err
		if !domain.IsTransient(err) || attempt == maxAttempts {
			break
		}

		wait := c.retryDelay(attempt)
		c.log.WithFields(logrus.Fields{"attempt": attempt, "wait": wait}).Warn("rate limited, retrying")
		if err := c.limiter.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) retryDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * c.baseDelay
	if d < c.rateLimitDelay {
		d = c.rateLimitDelay
	}
	return d
}

// Categories lists the provider's categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var body categoriesResponse
	if err := c.getJSON(ctx, "/api_category.php", &body); err != nil {
		return nil, err
	}
	for i := range body.TriviaCategories {
		body.TriviaCategories[i].Name = html.UnescapeString(body.TriviaCategories[i].Name)
	}
	return body.TriviaCategories, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &domain.ProviderError{Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrNetwork, err)
	}
	return nil
}

// normalize decodes HTML entities, shuffles each question's options, shuffles
// the list and numbers it 1..N.
func (c *Client) normalize(raw []rawQuestion) []domain.Question {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()

	out := make([]domain.Question, 0, len(raw))
	for _, r := range raw {
		options := make([]string, 0, len(r.IncorrectAnswers)+1)
		options = append(options, html.UnescapeString(r.CorrectAnswer))
		for _, a := range r.IncorrectAnswers {
			options = append(options, html.UnescapeString(a))
		}
		correct := 0
		c.rnd.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
			switch correct {
			case i:
				correct = j
			case j:
				correct = i
			}
		})

		difficulty, err := domain.ParseDifficulty(r.Difficulty)
		if err != nil {
			difficulty = domain.DifficultyAny
		}
		out = append(out, domain.Question{
			Category:     html.UnescapeString(r.Category),
			Difficulty:   difficulty,
			Prompt:       html.UnescapeString(r.Question),
			Options:      options,
			CorrectIndex: correct,
		})
	}

	c.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}
