package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// Pipeline produce un backtest completo a partir de un prefijo de la serie.
// Debe usar únicamente los datos del prefijo.
type Pipeline func(ctx context.Context, prefix domain.PriceSeries) (domain.BacktestResult, error)

// IntegrityOptions controla el replay.
type IntegrityOptions struct {
	Start          int     // primer índice (inclusive) del prefijo final
	Step           int     // avance entre prefijos; <=0 = 1
	PriceTolerance float64 // diferencia absoluta de precio de entrada tolerada
}

// DefaultIntegrity: empieza tras dos años de barras, cada 5 barras.
func DefaultIntegrity() IntegrityOptions {
	return IntegrityOptions{Start: 504, Step: 5, PriceTolerance: 0.01}
}

type seenTrade struct {
	baseline    domain.Trade
	firstSeenAt time.Time
	changes     []string
	flagged     map[string]bool
}

func (s *seenTrade) flag(msg string) {
	if s.flagged[msg] {
		return
	}
	s.flagged[msg] = true
	s.changes = append(s.changes, msg)
}

// VerifyIntegrity re-ejecuta pipeline sobre prefijos crecientes de ps
// (ps[:Start+1], ps[:Start+1+Step], ...) y compara cada trade con la primera
// vez que se vio, identificándolo por fecha de entrada. Se marca un trade si
// cambia de dirección o de precio de entrada, si su fecha de salida cambia
// después de haberse visto cerrado, o si un trade cerrado desaparece.
// Una estrategia causal produce un informe limpio.
func VerifyIntegrity(ctx context.Context, ps domain.PriceSeries, pipeline Pipeline, opts IntegrityOptions) (domain.IntegrityReport, error) {
	const op = "backtest.VerifyIntegrity"
	if opts.Step <= 0 {
		opts.Step = 1
	}
	if opts.Start < 0 {
		opts.Start = 0
	}
	if opts.Start >= ps.Len() {
		return domain.IntegrityReport{}, domain.Insufficient(op, opts.Start+1, ps.Len())
	}

	history := make(map[time.Time]*seenTrade)
	var report domain.IntegrityReport

	for end := opts.Start; end < ps.Len(); end += opts.Step {
		if err := ctx.Err(); err != nil {
			return domain.IntegrityReport{}, err
		}
		prefix := ps.Prefix(end + 1)
		asOf := prefix.Last().Time
		res, err := pipeline(ctx, prefix)
		if err != nil {
			return domain.IntegrityReport{}, fmt.Errorf("%s: replay at %s: %w", op, asOf.Format(time.DateOnly), err)
		}
		report.Replays++

		present := make(map[time.Time]bool, len(res.Trades))
		for _, t := range res.Trades {
			key := t.EntryDate
			present[key] = true
			seen, ok := history[key]
			if !ok {
				history[key] = &seenTrade{baseline: t, firstSeenAt: asOf, flagged: map[string]bool{}}
				continue
			}
			compare(seen, t, opts.PriceTolerance)
			if seen.baseline.Open && !t.Open {
				seen.baseline.Open = false
				seen.baseline.ExitDate = t.ExitDate
				seen.baseline.ExitPrice = t.ExitPrice
			}
		}
		for key, seen := range history {
			if !present[key] && !seen.baseline.Open {
				seen.flag("vanished")
			}
		}
	}

	report.TotalTrades = len(history)
	for key, seen := range history {
		if len(seen.changes) == 0 {
			continue
		}
		report.Corrupted = append(report.Corrupted, domain.TradeChange{
			EntryDate:   key,
			FirstSeen:   seen.baseline,
			FirstSeenAt: seen.firstSeenAt,
			Changes:     seen.changes,
		})
	}
	sort.Slice(report.Corrupted, func(i, j int) bool {
		return report.Corrupted[i].EntryDate.After(report.Corrupted[j].EntryDate)
	})
	return report, nil
}

func compare(seen *seenTrade, t domain.Trade, tol float64) {
	b := seen.baseline
	if b.Direction != t.Direction {
		seen.flag(fmt.Sprintf("direction: %s→%s", b.Direction, t.Direction))
	}
	if math.Abs(b.EntryPrice-t.EntryPrice) > tol {
		seen.flag(fmt.Sprintf("entry price: %.4f→%.4f", b.EntryPrice, t.EntryPrice))
	}
	if !b.Open && (t.Open || !b.ExitDate.Equal(t.ExitDate)) {
		to := "OPEN"
		if !t.Open {
			to = t.ExitDate.Format(time.DateOnly)
		}
		seen.flag(fmt.Sprintf("exit: %s→%s", b.ExitDate.Format(time.DateOnly), to))
	}
}
