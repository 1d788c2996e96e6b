package anilist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anidataset/anidataset/pkg/whttp"
	"github.com/anidataset/anidataset/pkg/windows"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestsPerMinute = 60
	DefaultTimeout           = 60 * time.Second

	// MaxPerPage is the largest page size AniList accepts.
	MaxPerPage = 50
)

var ErrRateLimited = errors.New("anilist: rate limited")

// RateLimitError reports an HTTP 429 or a GraphQL "Too Many Requests" error.
// Wait is zero when the server gave no hint.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("anilist: rate limited, retry after %s", e.Wait)
	}
	return "anilist: rate limited"
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RetryAfter implements retry.Hinted.
func (e *RateLimitError) RetryAfter() time.Duration { return e.Wait }

// StatusError is a non-success HTTP status that is not a rate limit.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("anilist: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anilist: HTTP %d", e.StatusCode)
}

// ResponseError is a success response whose body cannot be used.
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string { return "anilist: malformed response: " + e.Reason }

// GraphQLError carries the messages of a GraphQL "errors" array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "anilist: graphql: " + strings.Join(e.Messages, "; ")
}

type Config struct {
	Endpoint          string
	RequestsPerMinute int
	Timeout           time.Duration
	Proxy             string
	Logger            *logrus.Logger
	// HTTPClient overrides the transport built from Timeout and Proxy.
	HTTPClient *retryablehttp.Client
}

// Client issues Page queries against the AniList GraphQL endpoint. It sends
// every request exactly once; retrying is left to the caller.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	limiter  *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = whttp.NewClient(whttp.ClientConfig{
			Retries: 0,
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		endpoint: cfg.Endpoint,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

type variables struct {
	Page      int  `json:"page"`
	PerPage   int  `json:"perPage"`
	StartDate *int `json:"startDate"`
	EndDate   *int `json:"endDate"`
}

type request struct {
	Query     string    `json:"query"`
	Variables variables `json:"variables"`
}

// DateFilters converts a window into FuzzyDateInt bounds for startDate_greater
// and startDate_lesser. Both filters are exclusive, so the bounds sit just
// outside the window; year-only dates like 20200000 stay inside.
func DateFilters(w windows.Window) (greater, lesser *int) {
	if w.Start != nil {
		v := *w.Start*10000 - 1
		greater = &v
	}
	if w.End != nil {
		v := (*w.End + 1) * 10000
		lesser = &v
	}
	return greater, lesser
}

// FetchPage requests one page of the window. perPage is capped at MaxPerPage.
func (c *Client) FetchPage(ctx context.Context, w windows.Window, page, perPage int) (*Page, error) {
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	greater, lesser := DateFilters(w)
	body, err := json.Marshal(request{
		Query: pageQuery,
		Variables: variables{
			Page:      page,
			PerPage:   perPage,
			StartDate: greater,
			EndDate:   lesser,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: http.MethodPost,
		URL:    c.endpoint,
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/json"},
		},
		Body: body,
	}, c.http)
	if err != nil {
		return nil, err
	}

	return parseResponse(res.StatusCode, res.Headers, res.Body)
}

func parseResponse(status int, headers http.Header, body []byte) (*Page, error) {
	if status == http.StatusTooManyRequests {
		return nil, &RateLimitError{Wait: retryAfter(headers)}
	}

	if !gjson.ValidBytes(body) {
		if status >= 300 {
			return nil, &StatusError{StatusCode: status, Message: snippet(body)}
		}
		return nil, &ResponseError{Reason: "body is not valid JSON"}
	}

	if errs := gjson.GetBytes(body, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		var msgs []string
		for _, e := range errs.Array() {
			msg := e.Get("message").String()
			if e.Get("status").Int() == http.StatusTooManyRequests || strings.Contains(strings.ToLower(msg), "too many requests") {
				return nil, &RateLimitError{Wait: retryAfter(headers)}
			}
			msgs = append(msgs, msg)
		}
		if status >= 300 {
			return nil, &StatusError{StatusCode: status, Message: strings.Join(msgs, "; ")}
		}
		return nil, &GraphQLError{Messages: msgs}
	}

	if status >= 300 {
		return nil, &StatusError{StatusCode: status, Message: snippet(body)}
	}

	pageData := gjson.GetBytes(body, "data.Page")
	if !pageData.IsObject() {
		return nil, &ResponseError{Reason: "missing data.Page"}
	}

	page := &Page{}
	info := pageData.Get("pageInfo")
	if !info.IsObject() {
		return nil, &ResponseError{Reason: "missing data.Page.pageInfo"}
	}
	if err := json.Unmarshal([]byte(info.Raw), &page.Info); err != nil {
		return nil, &ResponseError{Reason: "pageInfo: " + err.Error()}
	}

	media := pageData.Get("media")
	if !media.IsArray() {
		return nil, &ResponseError{Reason: "missing data.Page.media"}
	}
	for _, item := range media.Array() {
		var m Media
		if err := json.Unmarshal([]byte(item.Raw), &m); err != nil {
			page.Invalid = append(page.Invalid, InvalidRecord{ID: int(item.Get("id").Int()), Err: err})
			continue
		}
		page.Media = append(page.Media, m)
	}
	return page, nil
}

// retryAfter reads Retry-After as seconds or an HTTP date.
func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
