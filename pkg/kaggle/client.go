package kaggle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anidataset/anidataset/pkg/whttp"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL      = "https://www.kaggle.com/api/v1"
	DefaultProbeRetries = 3
	DefaultTimeout      = 10 * time.Minute
)

var ErrDatasetExists = errors.New("kaggle: dataset already exists")

// APIError is an error reported by the Kaggle API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("kaggle: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "kaggle: " + e.Message
}

type Config struct {
	BaseURL     string
	Credentials Credentials
	Proxy       string
	Timeout     time.Duration
	// ProbeRetries bounds retries of the read-only existence check.
	// Uploads and creates are never retried.
	ProbeRetries int
	Logger       *logrus.Logger
}

type Client struct {
	baseURL string
	auth    whttp.WHTTPHeader
	probe   *retryablehttp.Client
	write   *retryablehttp.Client
	log     *logrus.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Credentials.Username == "" || cfg.Credentials.Key == "" {
		return nil, ErrNoCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProbeRetries < 0 {
		cfg.ProbeRetries = 0
	} else if cfg.ProbeRetries == 0 {
		cfg.ProbeRetries = DefaultProbeRetries
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	probe, err := whttp.NewClient(whttp.ClientConfig{Retries: cfg.ProbeRetries, Timeout: cfg.Timeout, Proxy: cfg.Proxy, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	write, err := whttp.NewClient(whttp.ClientConfig{Retries: 0, Timeout: cfg.Timeout, Proxy: cfg.Proxy, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		auth:    whttp.WHTTPHeader{Name: "Authorization", Value: "Basic " + basicAuth(cfg.Credentials)},
		probe:   probe,
		write:   write,
		log:     log,
	}, nil
}

// DatasetExists reports whether owner/slug can be listed.
func (c *Client) DatasetExists(ctx context.Context, owner, slug string) (bool, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s/datasets/list/%s/%s", c.baseURL, owner, slug),
		Headers: []whttp.WHTTPHeader{c.auth},
	}, c.probe)
	if err != nil {
		return false, err
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.StatusCode >= 300:
		return false, apiError(res)
	}
	if msg := gjson.GetBytes(res.Body, "errorMessage").String(); msg != "" {
		return false, &APIError{Message: msg}
	}
	return true, nil
}

// UploadFile sends one file to Kaggle's blob storage and returns the token
// that create requests refer to.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	info, err := fh.Stat()
	if err != nil {
		return "", err
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/datasets/upload/file/%d/%d", c.baseURL, info.Size(), info.ModTime().Unix()),
		Headers: []whttp.WHTTPHeader{c.auth},
	}, c.write)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 300 {
		return "", apiError(res)
	}
	token := gjson.GetBytes(res.Body, "token").String()
	createURL := gjson.GetBytes(res.Body, "createUrl").String()
	if token == "" || createURL == "" {
		return "", &APIError{Message: "upload slot response has no token or createUrl"}
	}

	c.log.Infof("Uploading %s (%d bytes)", filepath.Base(path), info.Size())
	res, err = whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:        http.MethodPut,
		URL:           createURL,
		Headers:       []whttp.WHTTPHeader{{Name: "Content-Type", Value: "application/octet-stream"}},
		BodyReader:    fh,
		ContentLength: info.Size(),
	}, c.write)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 300 {
		return "", apiError(res)
	}
	return token, nil
}

type fileToken struct {
	Token       string `json:"token"`
	Description string `json:"description,omitempty"`
}

type newDatasetRequest struct {
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	OwnerSlug    string      `json:"ownerSlug"`
	LicenseName  string      `json:"licenseName"`
	Subtitle     string      `json:"subtitle,omitempty"`
	Description  string      `json:"description,omitempty"`
	Files        []fileToken `json:"files"`
	IsPrivate    bool        `json:"isPrivate"`
	ConvertToCsv bool        `json:"convertToCsv"`
	CategoryIds  []string    `json:"categoryIds,omitempty"`
}

type newVersionRequest struct {
	VersionNotes      string      `json:"versionNotes"`
	Subtitle          string      `json:"subtitle,omitempty"`
	Description       string      `json:"description,omitempty"`
	Files             []fileToken `json:"files"`
	ConvertToCsv      bool        `json:"convertToCsv"`
	CategoryIds       []string    `json:"categoryIds,omitempty"`
	DeleteOldVersions bool        `json:"deleteOldVersions"`
}

// CreateResult is the API answer to a create request.
type CreateResult struct {
	Ref string
	URL string
}

func (c *Client) CreateDataset(ctx context.Context, meta Metadata, tokens []string) (*CreateResult, error) {
	owner, slug, err := meta.OwnerSlug()
	if err != nil {
		return nil, err
	}
	return c.create(ctx, c.baseURL+"/datasets/create/new", newDatasetRequest{
		Title:       meta.Title,
		Slug:        slug,
		OwnerSlug:   owner,
		LicenseName: meta.licenseName(),
		Subtitle:    meta.Subtitle,
		Description: meta.Description,
		Files:       toFileTokens(tokens),
		IsPrivate:   meta.IsPrivate,
		CategoryIds: meta.Keywords,
	})
}

func (c *Client) CreateVersion(ctx context.Context, meta Metadata, tokens []string, notes string) (*CreateResult, error) {
	owner, slug, err := meta.OwnerSlug()
	if err != nil {
		return nil, err
	}
	return c.create(ctx, fmt.Sprintf("%s/datasets/create/version/%s/%s", c.baseURL, owner, slug), newVersionRequest{
		VersionNotes: notes,
		Subtitle:     meta.Subtitle,
		Description:  meta.Description,
		Files:        toFileTokens(tokens),
		CategoryIds:  meta.Keywords,
	})
}

func (c *Client) create(ctx context.Context, url string, payload interface{}) (*CreateResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: http.MethodPost,
		URL:    url,
		Headers: []whttp.WHTTPHeader{
			c.auth,
			{Name: "Content-Type", Value: "application/json"},
		},
		Body: body,
	}, c.write)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, apiError(res)
	}
	if msg := gjson.GetBytes(res.Body, "error").String(); msg != "" {
		return nil, &APIError{Message: msg}
	}
	return &CreateResult{
		Ref: gjson.GetBytes(res.Body, "ref").String(),
		URL: gjson.GetBytes(res.Body, "url").String(),
	}, nil
}

// UploadRequest describes one publish.
type UploadRequest struct {
	Metadata Metadata
	Files    []string
	// NewVersion allows publishing over an existing dataset.
	NewVersion   bool
	VersionNotes string
}

type UploadResult struct {
	CreateResult
	DatasetID string
	Versioned bool
}

// Upload publishes the files: a new dataset when none exists, otherwise a
// new version if requested. Nothing here is retried.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	if len(req.Files) == 0 {
		return nil, errors.New("kaggle: no files to upload")
	}
	var missing []string
	for _, f := range req.Files {
		if _, err := os.Stat(f); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("kaggle: missing files: %s", strings.Join(missing, ", "))
	}

	owner, slug, _ := req.Metadata.OwnerSlug()
	exists, err := c.DatasetExists(ctx, owner, slug)
	if err != nil {
		return nil, fmt.Errorf("kaggle: check %s: %w", req.Metadata.ID, err)
	}
	if exists && !req.NewVersion {
		return nil, fmt.Errorf("%w: %s", ErrDatasetExists, req.Metadata.ID)
	}

	tokens := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		tok, err := c.UploadFile(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("kaggle: upload %s: %w", filepath.Base(f), err)
		}
		tokens = append(tokens, tok)
	}

	out := &UploadResult{DatasetID: req.Metadata.ID, Versioned: exists}
	var created *CreateResult
	if exists {
		notes := req.VersionNotes
		if notes == "" {
			notes = "Updated dataset"
		}
		c.log.Infof("Creating new version of existing dataset %s", req.Metadata.ID)
		created, err = c.CreateVersion(ctx, req.Metadata, tokens, notes)
	} else {
		c.log.Infof("Creating new dataset %s", req.Metadata.ID)
		created, err = c.CreateDataset(ctx, req.Metadata, tokens)
	}
	if err != nil {
		return nil, err
	}
	out.CreateResult = *created
	if out.URL == "" {
		out.URL = "https://www.kaggle.com/datasets/" + req.Metadata.ID
	}
	return out, nil
}

func toFileTokens(tokens []string) []fileToken {
	out := make([]fileToken, len(tokens))
	for i, t := range tokens {
		out[i] = fileToken{Token: t}
	}
	return out
}

func apiError(res *whttp.WHTTPRes) error {
	msg := gjson.GetBytes(res.Body, "message").String()
	if msg == "" {
		msg = gjson.GetBytes(res.Body, "error").String()
	}
	if msg == "" {
		msg = strings.TrimSpace(res.BodyString())
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
	}
	return &APIError{StatusCode: res.StatusCode, Message: msg}
}
