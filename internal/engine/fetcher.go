package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tartampluch/birthday-board/internal/config"
)

// ErrSourceTooLarge is returned by reads past config.MaxHTTPResponseSize.
var ErrSourceTooLarge = errors.New(config.ErrSourceTooLarge)

// SourceFetcher retrieves a remote birthday source (table or vCard).
type SourceFetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher implements SourceFetcher over net/http.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the configured timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Fetch downloads the source at targetURL. Only http and https are accepted,
// query strings are kept out of the logs, and reading more than
// config.MaxHTTPResponseSize bytes of body fails with ErrSourceTooLarge.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSourceOpen, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	log.Debug(config.MsgFetchStart)
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSourceOpen, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		log.Warn(config.MsgFetchBadStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: unexpected status %s", config.ErrSourceOpen, resp.Status)
	}

	return newLimitedReadCloser(resp.Body, config.MaxHTTPResponseSize), nil
}

// limitedReadCloser reads at most limit bytes from the body. One extra byte
// is requested so that an oversized body fails instead of being cut short.
type limitedReadCloser struct {
	io.Reader
	io.Closer
	limit int64
	read  int64
}

func newLimitedReadCloser(rc io.ReadCloser, limit int64) *limitedReadCloser {
	return &limitedReadCloser{
		Reader: io.LimitReader(rc, limit+1),
		Closer: rc,
		limit:  limit,
	}
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	n, err := l.Reader.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n - int(l.read-l.limit), fmt.Errorf("%w: %d bytes", ErrSourceTooLarge, l.limit)
	}
	return n, err
}
