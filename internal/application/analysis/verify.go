package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fairpath/internal/backtest"
	"github.com/alejandrodnm/fairpath/internal/domain"
)

// VerifyRequest pide re-simular una estrategia sobre prefijos crecientes.
type VerifyRequest struct {
	Ticker   string
	Strategy domain.StrategyKind
	Start    time.Time // la serie empieza aquí (zero = todo el histórico)
	Options  backtest.IntegrityOptions
	UseCache bool
}

// Verify comprueba que los trades de una estrategia no cambian al añadir
// datos. La historia frozen se construye una sola vez: cada punto solo depende
// de su prefijo, así que truncarla equivale a recalcularla.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (domain.IntegrityReport, error) {
	if _, ok := domain.ParseStrategyKind(string(req.Strategy)); !ok {
		return domain.IntegrityReport{}, domain.Invalid("analysis.Verify", "unknown strategy %q", req.Strategy)
	}
	ps, err := s.load(ctx, req.Ticker, req.Start)
	if err != nil {
		return domain.IntegrityReport{}, err
	}
	if ps.Len() == 0 {
		return domain.IntegrityReport{}, domain.Insufficient("analysis.Verify", 1, 0)
	}

	hist, err := s.frozenHistory(ctx, ps, ps.Last().Time, req.UseCache)
	if err != nil {
		return domain.IntegrityReport{}, err
	}

	pipeline := func(_ context.Context, prefix domain.PriceSeries) (domain.BacktestResult, error) {
		ev, err := s.evaluate(prefix, hist)
		if err != nil {
			return domain.BacktestResult{}, err
		}
		for _, o := range ev.outcomes {
			if o.Kind == req.Strategy {
				return o.Result, nil
			}
		}
		return domain.BacktestResult{}, fmt.Errorf("analysis.Verify: strategy %s not evaluated", req.Strategy)
	}

	started := time.Now()
	rep, err := backtest.VerifyIntegrity(ctx, ps, pipeline, req.Options)
	if err != nil {
		return domain.IntegrityReport{}, err
	}
	rep.Ticker = ps.Ticker()
	rep.Strategy = req.Strategy

	slog.Info("integrity verified",
		"ticker", rep.Ticker,
		"strategy", rep.Strategy,
		"replays", rep.Replays,
		"trades", rep.TotalTrades,
		"corrupted", len(rep.Corrupted),
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return rep, nil
}
