package cmd

import (
	"context"
	"errors"

	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/spf13/viper"
)

var errNoReportURL = errors.New("no report URL configured: use --url, report.url in the config file or LEAVEWATCH_REPORT_URL")

func storeLocation() (backend, path string) {
	backend = viper.GetString("store.backend")
	path = viper.GetString("store.path")
	if path == "" {
		path = tracking.DefaultPath(backend)
	}
	return backend, path
}

func openStore() (tracking.Store, error) {
	return tracking.Open(storeLocation())
}

func newFetcher() (*report.Fetcher, error) {
	return report.NewFetcher(report.Options{
		Retries: viper.GetInt("report.retries"),
		Timeout: viper.GetDuration("report.timeout"),
		Proxy:   viper.GetString("report.proxy"),
	})
}

// fetchReport downloads the configured report once.
func fetchReport(ctx context.Context) (*report.Dataset, error) {
	reportURL := viper.GetString("report.url")
	if reportURL == "" {
		return nil, errNoReportURL
	}
	f, err := newFetcher()
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, reportURL)
}
