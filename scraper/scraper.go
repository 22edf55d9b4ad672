// Package scraper drives the catalog crawl: it fetches index pages, follows
// their item links and feeds extracted books into the pipeline.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aluiziolira/bookcrawl/config"
	"github.com/aluiziolira/bookcrawl/models"
	"github.com/aluiziolira/bookcrawl/parser"
	"github.com/aluiziolira/bookcrawl/pipeline"
	"golang.org/x/sync/errgroup"
)

// Abort reasons reported in models.CrawlResult.
const (
	AbortIndexFetch = "index_fetch"
	AbortIndexParse = "index_parse"
	AbortCycle      = "cycle"
	AbortCanceled   = "canceled"
)

// Scraper walks the paginated catalog one index page at a time.
type Scraper struct {
	cfg       *config.Config
	fetcher   PageFetcher
	siteBase  *url.URL
	catalogue *url.URL
	Metrics   *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	metrics := NewMetrics()
	fetcher, err := NewFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return newScraper(cfg, fetcher, metrics)
}

func newScraper(cfg *config.Config, fetcher PageFetcher, metrics *Metrics) (*Scraper, error) {
	siteBase, err := cfg.SiteBase()
	if err != nil {
		return nil, err
	}
	catalogue, err := cfg.CatalogueBase()
	if err != nil {
		return nil, err
	}
	return &Scraper{
		cfg:       cfg,
		fetcher:   fetcher,
		siteBase:  siteBase,
		catalogue: catalogue,
		Metrics:   metrics,
	}, nil
}

// crawlState is owned by a single Run and never shared.
type crawlState struct {
	current      string
	pages        int
	collected    int
	failures     int
	duplicates   int
	requests     int
	visited      map[string]struct{}
	failedURLs   []string
	errorsByType map[string]int
	aborted      bool
	abortReason  string
}

func newCrawlState(start string) *crawlState {
	return &crawlState{
		current:      start,
		visited:      make(map[string]struct{}),
		errorsByType: make(map[string]int),
	}
}

func (st *crawlState) fail(url, kind string) {
	st.failedURLs = append(st.failedURLs, url)
	st.errorsByType[kind]++
}

func (st *crawlState) abort(reason string) {
	st.aborted = true
	st.abortReason = reason
}

type itemOutcome struct {
	url     string
	book    *models.Book
	err     error
	fetched bool
	skipped bool
}

// Run crawls from the configured start page until the pagination chain ends
// or an index page cannot be fetched. Books are handed to p as soon as they
// are extracted, in catalog order. An aborted crawl is reported through the
// result, not the error; the error is reserved for setup failures and a
// closed pipeline.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start, err := s.cfg.StartURL()
	if err != nil {
		return nil, fmt.Errorf("start url: %w", err)
	}

	startTime := time.Now()
	state := newCrawlState(start)

	for {
		if s.cfg.MaxPages > 0 && state.pages >= s.cfg.MaxPages {
			slog.Info("page limit reached", slog.Int("pages", state.pages))
			break
		}
		if _, seen := state.visited[state.current]; seen {
			slog.Warn("crawl aborted: pagination revisits a page", slog.String("url", state.current))
			state.abort(AbortCycle)
			break
		}
		state.visited[state.current] = struct{}{}

		state.requests++
		s.Metrics.IncRequest("index")
		doc, err := s.fetcher.Fetch(ctx, state.current)
		if err != nil {
			reason := AbortIndexFetch
			if ctx.Err() != nil {
				reason = AbortCanceled
			}
			s.recordFetchFailure(state, state.current, err)
			slog.Error("crawl aborted: index page unavailable",
				slog.Int("page", state.pages+1),
				slog.String("url", state.current),
				slog.Any("error", err),
			)
			state.abort(reason)
			break
		}

		listing, err := parser.WalkListing(doc, s.catalogue)
		if err != nil {
			state.fail(state.current, "extraction")
			s.Metrics.IncError("extraction")
			slog.Error("crawl aborted: index page unreadable",
				slog.String("url", state.current),
				slog.Any("error", err),
			)
			state.abort(AbortIndexParse)
			break
		}

		state.pages++
		s.Metrics.IncPages()
		slog.Info("index page walked",
			slog.Int("page", state.pages),
			slog.String("url", state.current),
			slog.Int("items", len(listing.Items)),
		)

		if err := s.collectPage(ctx, p, state, listing.Items); err != nil {
			return nil, err
		}

		if ctx.Err() != nil {
			slog.Warn("crawl aborted: canceled", slog.Int("pages", state.pages))
			state.abort(AbortCanceled)
			break
		}
		if !listing.HasNext() {
			slog.Info("no further pages, crawl complete", slog.Int("pages", state.pages))
			break
		}
		state.current = listing.Next
	}

	result := &models.CrawlResult{
		StartTime:    startTime,
		EndTime:      time.Now(),
		PageCount:    state.pages,
		TotalCount:   state.collected,
		FailureCount: state.failures,
		Duplicates:   state.duplicates,
		RequestCount: state.requests,
		FailedURLs:   state.failedURLs,
		ErrorsByType: state.errorsByType,
		Aborted:      state.aborted,
		AbortReason:  state.abortReason,
	}
	return result, nil
}

// collectPage fetches and extracts every item of one index page and records
// the outcomes in link order. Sequential crawls record each book as soon as
// it is extracted; with Parallelism > 1 the page's items are fetched through
// a bounded pool and recorded in link order once the page completes.
func (s *Scraper) collectPage(ctx context.Context, p *pipeline.Pipeline, state *crawlState, links []string) error {
	if s.cfg.Parallelism <= 1 {
		for _, link := range links {
			if err := s.record(p, state, s.scrapeItem(ctx, p, link)); err != nil {
				return err
			}
		}
		return nil
	}

	outcomes := make([]itemOutcome, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, link := range links {
		g.Go(func() error {
			outcomes[i] = s.scrapeItem(gctx, p, link)
			return nil
		})
	}
	_ = g.Wait()

	for _, outcome := range outcomes {
		if err := s.record(p, state, outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scraper) scrapeItem(ctx context.Context, p *pipeline.Pipeline, link string) itemOutcome {
	if ctx.Err() != nil {
		return itemOutcome{url: link, skipped: true}
	}
	if p.Seen(link) {
		return itemOutcome{url: link, err: pipeline.ErrDuplicate}
	}

	s.Metrics.IncRequest("item")
	doc, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return itemOutcome{url: link, fetched: true, skipped: true}
		}
		return itemOutcome{url: link, fetched: true, err: err}
	}

	book, err := parser.ExtractBook(doc, link, s.siteBase)
	return itemOutcome{url: link, fetched: true, book: book, err: err}
}

// record applies one item outcome to the crawl state. Only the orchestrating
// goroutine calls it.
func (s *Scraper) record(p *pipeline.Pipeline, state *crawlState, outcome itemOutcome) error {
	if outcome.fetched {
		state.requests++
	}
	if outcome.skipped {
		return nil
	}

	err := outcome.err
	if err == nil {
		err = p.Process(outcome.book)
	}

	var fetchErr *FetchError
	var extractErr *parser.ExtractionError
	switch {
	case err == nil:
		state.collected++
		s.Metrics.IncItems()
	case errors.Is(err, pipeline.ErrPipelineClosed):
		return fmt.Errorf("record %s: %w", outcome.url, err)
	case errors.Is(err, pipeline.ErrDuplicate):
		state.duplicates++
		s.Metrics.IncDuplicates()
		slog.Debug("duplicate item skipped", slog.String("url", outcome.url))
	case errors.As(err, &fetchErr):
		state.failures++
		s.recordFetchFailure(state, outcome.url, err)
		slog.Warn("item skipped: fetch failed",
			slog.String("url", outcome.url),
			slog.String("kind", fetchErr.Kind()),
			slog.Any("error", err),
		)
	case errors.As(err, &extractErr):
		state.failures++
		state.fail(outcome.url, "extraction")
		s.Metrics.IncError("extraction")
		slog.Warn("item skipped: extraction failed",
			slog.String("url", outcome.url),
			slog.String("anchor", extractErr.Anchor),
			slog.Any("error", err),
		)
	default:
		state.failures++
		state.fail(outcome.url, "invalid_record")
		s.Metrics.IncError("invalid_record")
		slog.Warn("item skipped: invalid record",
			slog.String("url", outcome.url),
			slog.Any("error", err),
		)
	}
	return nil
}

func (s *Scraper) recordFetchFailure(state *crawlState, url string, err error) {
	kind := "other"
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		kind = fetchErr.Kind()
	}
	state.fail(url, kind)
	s.Metrics.IncError(kind)
}
