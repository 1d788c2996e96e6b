package whttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const UserAgent = "anidataset/1.0 (+https://github.com/anidataset/anidataset)"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
	// BodyReader streams large bodies (file uploads). Takes precedence over Body.
	BodyReader    io.ReadSeeker
	ContentLength int64
}

type WHTTPRes struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (r *WHTTPRes) BodyString() string {
	return string(r.Body)
}

// ClientConfig describes how to build a transport.
type ClientConfig struct {
	// Retries is the number of transport-level retries. Zero means a request
	// is sent exactly once and the caller owns any retry decision.
	Retries int
	Timeout time.Duration
	Proxy   string
	Logger  *logrus.Logger
}

// NewClient builds a retryablehttp client. Responses are always handed back
// to the caller, even after the last retry, so status codes like 429 can be
// inspected.
func NewClient(cfg ClientConfig) (*retryablehttp.Client, error) {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.Retries
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		c.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.Logger != nil {
		c.Logger = leveledLogger{cfg.Logger}
	} else {
		c.Logger = log.New(io.Discard, "", 0)
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		if t, ok := c.HTTPClient.Transport.(*http.Transport); ok {
			t.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return c, nil
}

func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (wRes *WHTTPRes, err error) {
	if client == nil {
		if client, err = NewClient(ClientConfig{}); err != nil {
			return nil, err
		}
	}

	var body interface{}
	switch {
	case wReq.BodyReader != nil:
		body = wReq.BodyReader
	case wReq.Body != nil:
		body = wReq.Body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}
	if wReq.ContentLength > 0 {
		req.ContentLength = wReq.ContentLength
	}

	// Set common headers
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	// Set custom headers
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}

	return &WHTTPRes{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       buf.Bytes(),
	}, nil
}

// leveledLogger forwards retryablehttp's key/value logging to logrus.
type leveledLogger struct {
	l *logrus.Logger
}

func (a leveledLogger) fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

func (a leveledLogger) Error(msg string, kv ...interface{}) { a.l.WithFields(a.fields(kv)).Error(msg) }
func (a leveledLogger) Info(msg string, kv ...interface{})  { a.l.WithFields(a.fields(kv)).Debug(msg) }
func (a leveledLogger) Debug(msg string, kv ...interface{}) { a.l.WithFields(a.fields(kv)).Debug(msg) }
func (a leveledLogger) Warn(msg string, kv ...interface{})  { a.l.WithFields(a.fields(kv)).Warn(msg) }
