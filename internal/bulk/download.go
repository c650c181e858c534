// Package bulk downloads per-station observation archives from the
// provider's bulk endpoint and assembles them into one table. Files
// are gzipped CSV, one file per (interval, station), fetched over
// HTTPS or from an anonymous FTP mirror.
package bulk

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/lox/meteofill/internal/httputil"
	"github.com/lox/meteofill/internal/metrics"
	"github.com/lox/meteofill/pkg/wx"
)

type Client struct {
	baseURL string
	client  *http.Client
	ftpHost string
}

// NewClient talks to the HTTPS bulk endpoint, e.g.
// "https://bulk.example.net/v2".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httputil.NewClient(0),
	}
}

// UseFTP switches downloads to the anonymous FTP mirror, e.g.
// "bulk.example.net:21".
func (c *Client) UseFTP(host string) {
	c.ftpHost = host
}

// SetTimeout overrides the HTTP timeout for archive fetches.
func (c *Client) SetTimeout(d time.Duration) {
	c.client = httputil.NewClient(d)
}

// Download fetches the interval archive for every station and returns
// one table with a row per (station, timestamp) inside [start, end].
// Any provider failure aborts the whole download.
func (c *Client) Download(ctx context.Context, stationIDs []string, iv wx.Interval, start, end time.Time) (*wx.Table, error) {
	if !iv.Valid() {
		return nil, fmt.Errorf("download: unknown interval %q", iv)
	}

	tbl := wx.NewTable()
	for _, id := range stationIDs {
		began := time.Now()
		body, err := c.fetch(ctx, id, iv)
		if err != nil {
			metrics.DownloadsTotal.WithLabelValues(id, "error").Inc()
			return nil, fmt.Errorf("station %s: %w", id, err)
		}
		metrics.DownloadsTotal.WithLabelValues(id, "ok").Inc()
		metrics.DownloadLatency.WithLabelValues(id).Observe(time.Since(began).Seconds())

		if err := parseArchive(tbl, body, id, iv, start, end); err != nil {
			return nil, fmt.Errorf("station %s: %w", id, err)
		}
	}
	metrics.ObservationRowsTotal.Add(float64(tbl.Nrow()))
	return tbl, nil
}

func (c *Client) fetch(ctx context.Context, stationID string, iv wx.Interval) ([]byte, error) {
	path := fmt.Sprintf("%s/%s.csv.gz", iv, stationID)
	if c.ftpHost != "" {
		return c.fetchFTP(path)
	}
	return c.fetchHTTP(ctx, path)
}

func (c *Client) fetchHTTP(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch archive: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch archive: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch archive: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) fetchFTP(path string) ([]byte, error) {
	conn, err := ftp.Dial(c.ftpHost, ftp.DialWithTimeout(httputil.DefaultTimeout))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr("/" + path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("ftp read %s: %w", path, err)
	}
	return body, nil
}

func gunzip(body []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
