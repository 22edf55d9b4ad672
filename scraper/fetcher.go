package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/bookcrawl/config"
	"github.com/aluiziolira/bookcrawl/parser"
	"github.com/gocolly/colly/v2"
)

const (
	ctxBody   = "body"
	ctxStatus = "status"
)

// PageFetcher retrieves and parses one page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (parser.Document, error)
}

// Fetcher issues single GET requests through a synchronous colly collector.
// It does not retry and does not cache; redirects are followed by the
// transport.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewFetcher builds a fetcher restricted to the configured site's host.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxBody, r.Body)
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxStatus, r.StatusCode)
		}
	})

	return &Fetcher{collector: collector, metrics: metrics}, nil
}

// Fetch retrieves rawURL and parses the body. Every failure is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (parser.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, newFetchError(rawURL, 0, err)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, newFetchError(rawURL, 0, err)
	}

	reqCtx := colly.NewContext()
	start := time.Now()
	err = f.collector.Request(http.MethodGet, rawURL, nil, reqCtx, nil)
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		status, _ := reqCtx.GetAny(ctxStatus).(int)
		return nil, newFetchError(rawURL, status, err)
	}

	body, ok := reqCtx.GetAny(ctxBody).([]byte)
	if !ok {
		return nil, newFetchError(rawURL, 0, fmt.Errorf("no response body"))
	}
	doc, err := parser.NewDocument(body, pageURL)
	if err != nil {
		return nil, newFetchError(rawURL, 0, err)
	}
	return doc, nil
}
