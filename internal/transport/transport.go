// Package transport fetches remote package assets over HTTP.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ProgressFunc is invoked as bytes arrive. total is -1 when the server did
// not send a Content-Length.
type ProgressFunc func(downloaded, total int64)

// Auth carries the three credential shapes a remote index may require.
// Precedence when more than one is set: OAuthToken, then Basic, then none.
type Auth struct {
	OAuthToken string
	Username   string
	Password   string
}

// Apply sets the Authorization header on req per the precedence described
// on Auth: OAuthToken, then Basic, then no header at all.
func (a Auth) Apply(req *http.Request) {
	switch {
	case a.OAuthToken != "":
		req.Header.Set("Authorization", "Bearer "+a.OAuthToken)
	case a.Username != "" || a.Password != "":
		req.SetBasicAuth(a.Username, a.Password)
	}
}

// Downloader retrieves a remote asset into dest, reporting progress and
// returning the number of bytes written.
type Downloader interface {
	Download(ctx context.Context, url, dest string, auth Auth, progress ProgressFunc) (int64, error)
}

// httpDownloader is the only Downloader implementation; it exists behind
// the interface so install tasks can be tested with a fake.
type httpDownloader struct {
	client *http.Client
}

// New returns a Downloader backed by net/http with the given timeout for
// the whole request (not just dialing). timeout <= 0 disables the cap.
func New(timeout time.Duration) Downloader {
	return &httpDownloader{client: &http.Client{Timeout: timeout}}
}

func (d *httpDownloader) Download(ctx context.Context, url, dest string, auth Auth, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("transport: build request: %w", err)
	}
	auth.Apply(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("transport: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{URL: url, Code: resp.StatusCode}
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("transport: create %s: %w", dest, err)
	}
	defer out.Close()

	total := resp.ContentLength
	pr := &progressReader{r: resp.Body, total: total, onProgress: progress}
	n, err := io.Copy(out, pr)
	if err != nil {
		return n, fmt.Errorf("transport: copy body: %w", err)
	}
	return n, nil
}

// progressReader wraps an io.Reader, invoking onProgress after each Read.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		if p.onProgress != nil {
			total := p.total
			if total <= 0 {
				total = -1
			}
			p.onProgress(p.read, total)
		}
	}
	return n, err
}

// StatusError reports a non-200 response from a remote mirror.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: %s: unexpected status %d", e.URL, e.Code)
}
