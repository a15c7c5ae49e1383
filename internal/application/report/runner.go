package report

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of inspecting one URL in a batch.
type Result struct {
	Index  int     `json:"-"`
	URL    string  `json:"url"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`

	Err error `json:"-"`
}

// ResultFunc is called once per URL as soon as its report is ready. Calls
// may come from several goroutines at once.
type ResultFunc func(result Result)

// Runner inspects many URLs with bounded concurrency and rate limiting.
type Runner struct {
	Concurrency int           // Maximum number of concurrent inspections
	RateLimit   int           // Inspections started per second (global); zero disables
	Timeout     time.Duration // Timeout for one whole report; zero disables
}

// Run inspects every URL and returns the results in input order.
func (r *Runner) Run(ctx context.Context, o *Orchestrator, urls []string, facets []Facet, onResult ResultFunc) []Result {
	// Rate limiter
	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(urls))

	for i, rawURL := range urls {
		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()

			// Acquire semaphore
			sem <- struct{}{}
			defer func() { <-sem }()

			result := Result{Index: i, URL: rawURL}

			if err := limiter.Wait(ctx); err != nil {
				result.Err = err
			} else {
				inspectCtx, cancel := ctx, context.CancelFunc(func() {})
				if r.Timeout > 0 {
					inspectCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				}
				result.Report, result.Err = o.Inspect(inspectCtx, rawURL, facets)
				cancel()
			}
			if result.Err != nil {
				result.Error = result.Err.Error()
			}

			if onResult != nil {
				onResult(result)
			}
			results[i] = result
		}(i, rawURL)
	}

	wg.Wait()
	return results
}
