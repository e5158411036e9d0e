package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/errs"
)

// Input is one document handed to the pipeline: raw bytes plus a filename
// for format detection, and an optional source URL.
type Input struct {
	Filename  string
	Data      []byte
	SourceURL string
}

// Fetcher downloads documents referenced by URL.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: resty.New().SetTimeout(timeout)}
}

// Fetch downloads rawURL and returns an Input whose filename is derived
// from the URL path. A malformed URL or a non-success response is a client
// error: the caller pointed at something that cannot be fetched.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Input, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errs.ClientInput(fmt.Sprintf("invalid document URL: %s", rawURL))
	}
	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, &errs.Error{Kind: errs.KindClientInput, Message: "unable to fetch document", Err: err}
	}
	if resp.IsError() {
		return nil, errs.ClientInput(fmt.Sprintf("unable to fetch document: status %d", resp.StatusCode()))
	}
	filename := path.Base(parsed.Path)
	if filename == "." || filename == "/" || filename == "" {
		filename = "document"
	}
	return &Input{Filename: filename, Data: resp.Body(), SourceURL: rawURL}, nil
}

// DocIDForURL returns a stable document ID for a URL source, so ingesting
// the same URL again addresses the same document.
func DocIDForURL(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return "url:" + hex.EncodeToString(hash[:16])
}

// NewDocID returns a fresh document ID for an uploaded document.
func NewDocID() string {
	return uuid.New().String()
}
