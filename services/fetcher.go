package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"visual-nuts/models"
)

var ErrBodyTooLarge = errors.New("dataset body too large")

type Fetcher struct {
	client     *http.Client
	retryDelay time.Duration
	maxBytes   int64
}

// NewFetcher returns a Fetcher that gives up after timeout and refuses
// bodies larger than maxBytes.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		retryDelay: 2 * time.Second,
		maxBytes:   maxBytes,
	}
}

// Fetch downloads a country dataset. The format is taken from the response
// Content-Type, falling back to the extension of the URL path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]models.Country, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: bad url: %w", err)
	}

	body, contentType, err := f.get(ctx, rawURL, true)
	if err != nil {
		return nil, err
	}

	format, err := formatFromContentType(contentType)
	if err != nil {
		if format, err = FormatFromPath(u.Path); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}

	countries, err := DecodeDataset(bytes.NewReader(body), format)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	log.Printf("[fetch] %s: %d countries (%s)", rawURL, len(countries), format)
	return countries, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string, retry bool) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "VisualNuts/1.0")
	req.Header.Set("Accept", "application/json, application/yaml, text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch read failed: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: %w (limit %d bytes)", rawURL, ErrBodyTooLarge, f.maxBytes)
	}

	if resp.StatusCode == http.StatusServiceUnavailable && retry {
		log.Printf("[fetch] %s: HTTP 503, retrying in %s", rawURL, f.retryDelay)
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(f.retryDelay):
		}
		return f.get(ctx, rawURL, false)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

func formatFromContentType(contentType string) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}

	switch {
	case strings.HasSuffix(mediaType, "json"):
		return FormatJSON, nil
	case strings.HasSuffix(mediaType, "yaml"), strings.HasSuffix(mediaType, "yml"):
		return FormatYAML, nil
	case mediaType == "text/html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
}
