package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "leavewatch/1.0"

// Options configures a Fetcher.
type Options struct {
	// Retries is the number of extra attempts after a failed request. Zero
	// means a single attempt.
	Retries int
	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration
	// Proxy is an optional HTTP proxy URL, useful for debugging.
	Proxy string
}

// Fetcher downloads and parses the leave report.
type Fetcher struct {
	client *retryablehttp.Client
}

// NewFetcher builds a fetcher from opts.
func NewFetcher(opts Options) (*Fetcher, error) {
	client := retryablehttp.NewClient()
	client.Logger = leveledLogger{}
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	// Hand the last response back instead of the generic "giving up" error,
	// so the status code reaches the user.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport, ok := client.HTTPClient.Transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("unexpected transport type %T", client.HTTPClient.Transport)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Fetcher{client: client}, nil
}

// Fetch downloads reportURL and parses it into a Dataset.
func (f *Fetcher) Fetch(ctx context.Context, reportURL string) (*Dataset, error) {
	if reportURL == "" {
		return nil, fmt.Errorf("no report URL configured")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, reportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("Cache-Control", "no-transform")

	utils.Log.WithField("url", reportURL).Debug("Fetching leave report")
	start := time.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: reportURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading report body: %w", err)
	}

	text, err := Decode(body)
	if err != nil {
		return nil, err
	}

	ds, err := Parse(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	ds.Source = reportURL
	ds.FetchedAt = time.Now()

	utils.Log.WithField("rows", len(ds.Records)).WithField("took", time.Since(start)).Info("Leave report fetched")
	return ds, nil
}

// leveledLogger routes retryablehttp logs to the shared logrus logger.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	utils.Log.WithFields(fields(keysAndValues)).Error(msg)
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	utils.Log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	utils.Log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	utils.Log.WithFields(fields(keysAndValues)).Warn(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
