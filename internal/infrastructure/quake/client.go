// Package quake reads the latest earthquake from PHIVOLCS or the USGS feed.
package quake

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"alertaid-backend/internal/domain"
	"alertaid-backend/internal/infrastructure/fetch"
)

const (
	SourcePhivolcs = "phivolcs"
	SourceUSGS     = "usgs"
)

// RetryFetcher is the subset of fetch.Fetcher used here.
type RetryFetcher interface {
	JSONWithRetry(ctx context.Context, rawURL string, opts fetch.Options, maxAttempts int, delay time.Duration, out interface{}) error
}

// RetryPolicy configures the resilient fetch against an upstream.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// PhivolcsClient reads the PHIVOLCS latest-events endpoint, which serves an
// outdated certificate and intermittently answers with HTML error pages.
type PhivolcsClient struct {
	fetcher  RetryFetcher
	url      string
	insecure bool
	retry    RetryPolicy
	loc      *time.Location
}

func NewPhivolcsClient(fetcher RetryFetcher, url string, insecure bool, retry RetryPolicy, loc *time.Location) *PhivolcsClient {
	if loc == nil {
		loc = time.UTC
	}
	return &PhivolcsClient{
		fetcher:  fetcher,
		url:      url,
		insecure: insecure,
		retry:    retry,
		loc:      loc,
	}
}

// Latest returns the most recent event, or nil when the feed is empty.
func (c *PhivolcsClient) Latest(ctx context.Context) (*domain.Earthquake, error) {
	var payload PhivolcsPayload
	opts := fetch.Options{InsecureSkipVerify: c.insecure}
	if err := c.fetcher.JSONWithRetry(ctx, c.url, opts, c.retry.Attempts, c.retry.Delay, &payload); err != nil {
		return nil, errors.Wrap(err, "fetch phivolcs events")
	}

	ev := payload.Selected()
	if ev == nil {
		return nil, nil
	}

	when := ev.DateTime
	if when == "" {
		when = ev.Datetime
	}
	return &domain.Earthquake{
		Magnitude:     ev.Magnitude.Value,
		MagnitudeText: ev.Magnitude.Raw,
		Place:         strings.TrimSpace(ev.Location),
		OccurredAt:    parsePhivolcsTime(when, c.loc),
		Source:        SourcePhivolcs,
	}, nil
}

// USGSClient reads a USGS GeoJSON summary feed and keeps only events in
// the configured region at or above the minimum magnitude.
type USGSClient struct {
	fetcher      RetryFetcher
	url          string
	region       string
	minMagnitude float64
	retry        RetryPolicy
}

func NewUSGSClient(fetcher RetryFetcher, url, region string, minMagnitude float64, retry RetryPolicy) *USGSClient {
	return &USGSClient{
		fetcher:      fetcher,
		url:          url,
		region:       strings.ToLower(region),
		minMagnitude: minMagnitude,
		retry:        retry,
	}
}

// Latest returns the first matching feature, or nil when none matches.
// The feed is ordered newest first.
func (c *USGSClient) Latest(ctx context.Context) (*domain.Earthquake, error) {
	var fc FeatureCollection
	if err := c.fetcher.JSONWithRetry(ctx, c.url, fetch.Options{}, c.retry.Attempts, c.retry.Delay, &fc); err != nil {
		return nil, errors.Wrap(err, "fetch usgs feed")
	}

	for _, f := range fc.Features {
		p := f.Properties
		if p.Mag == nil || *p.Mag < c.minMagnitude {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Place), c.region) {
			continue
		}
		var occurred time.Time
		if p.Time > 0 {
			occurred = time.UnixMilli(p.Time)
		}
		return &domain.Earthquake{
			Magnitude:  *p.Mag,
			Place:      p.Place,
			OccurredAt: occurred,
			Source:     SourceUSGS,
		}, nil
	}
	return nil, nil
}
