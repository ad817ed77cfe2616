package scanner

// concurrent.go: worker pool para el radar.
//
// Cada ticker es independiente (fetch + solver + frozen); los workers toman
// tickers de workCh y dejan cada resultado en su slot por índice, así la
// salida conserva el orden de entrada.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

type work struct {
	idx    int
	ticker string
}

type outcome struct {
	idx    int
	result domain.ScanResult
}

// scanConcurrent analiza tickers en paralelo. Los tickers que fallan se
// registran y se omiten. Si workers <= 0 usa runtime.NumCPU().
func (s *Scanner) scanConcurrent(ctx context.Context, tickers []string, workers int) []domain.ScanResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tickers) {
		workers = len(tickers)
	}

	workCh := make(chan work, len(tickers))
	resultCh := make(chan outcome, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				if ctx.Err() != nil {
					continue // drenar
				}
				res, err := s.scanOne(ctx, w.ticker)
				if err != nil {
					slog.Warn("scan failed", "ticker", w.ticker, "err", err)
					continue
				}
				resultCh <- outcome{idx: w.idx, result: res}
			}
		}()
	}

	for i, t := range tickers {
		workCh <- work{idx: i, ticker: t}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	slots := make([]*domain.ScanResult, len(tickers))
	for o := range resultCh {
		r := o.result
		slots[o.idx] = &r
	}

	results := make([]domain.ScanResult, 0, len(tickers))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	slog.Debug("concurrent scan complete",
		"tickers", len(tickers),
		"results", len(results),
		"workers", workers,
	)
	return results
}
