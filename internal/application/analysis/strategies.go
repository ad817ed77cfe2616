package analysis

import (
	"github.com/alejandrodnm/fairpath/internal/backtest"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/frozen"
	"github.com/alejandrodnm/fairpath/internal/signal"
)

// evaluation es todo lo que se deriva de una vista de precios y su historia
// frozen truncada al final de la vista.
type evaluation struct {
	trajectory domain.ActionTrajectory
	zKinetic   []float64
	zSlope     []float64
	roc        []float64
	frozen     frozen.Normalized
	outcomes   []domain.StrategyOutcome
}

// evaluate corre las cuatro estrategias sobre view:
//
//	LIVE       z(kinetic) en vivo, dirección por z(slope)
//	FROZEN     z(potential frozen), dirección por variación del z
//	SUM        z(kin+pot frozen) filtrado, umbral SumThreshold
//	MINACTION  z(ghost slope frozen), dirección por precio vs x* frozen
//
// La historia frozen se trunca y renormaliza en el último día de view, así
// que ningún valor de las tres últimas depende de datos posteriores.
func (s *Service) evaluate(view domain.PriceSeries, hist domain.FrozenHistory) (evaluation, error) {
	var ev evaluation
	tr, err := s.solve(view)
	if err != nil {
		return ev, err
	}
	ev.trajectory = tr
	ev.zKinetic = signal.RollingZScore(tr.Kinetic, s.cfg.ZScore)
	ev.zSlope = signal.RollingZScore(tr.Slope, s.cfg.ZScore)
	ev.roc = signal.RateOfChange(view.Values(), s.cfg.ROCPeriod)
	ev.frozen = frozen.SliceAndRenormalize(hist, view.Last().Time, s.cfg.Normalize)

	prices := view.Values()
	dates := view.Dates()
	sentinel := s.cfg.Sentinel
	align := func(col []float64) []float64 { return ev.frozen.Align(dates, col, sentinel) }

	specs := []struct {
		kind      domain.StrategyKind
		threshold float64
		signal    []float64
		rules     backtest.Rules
	}{
		{
			kind:   domain.StrategyLive,
			signal: ev.zKinetic,
			rules:  backtest.Rules{Direction: backtest.DirectionSlope, Slope: ev.zSlope},
		},
		{
			kind:   domain.StrategyFrozen,
			signal: align(ev.frozen.ZPotential),
			rules:  backtest.Rules{Direction: backtest.DirectionZRate},
		},
		{
			kind:      domain.StrategySum,
			threshold: s.cfg.SumThreshold,
			signal:    align(ev.frozen.ZSum),
			rules:     backtest.Rules{Direction: backtest.DirectionZRate},
		},
		{
			kind:   domain.StrategyMinAction,
			signal: align(ev.frozen.ZGhost),
			rules: backtest.Rules{
				Direction:  backtest.DirectionTrend,
				TrendCurve: ev.frozen.Align(dates, ev.frozen.Path, 0),
			},
		},
	}

	for _, sp := range specs {
		rules := sp.rules
		rules.Threshold = sp.threshold
		rules.InitialCapital = s.cfg.InitialCapital
		rules.Sentinel = sentinel
		res, err := backtest.Run(prices, sp.signal, dates, rules)
		if err != nil {
			return ev, err
		}
		ev.outcomes = append(ev.outcomes, domain.StrategyOutcome{
			Kind:      sp.kind,
			Threshold: sp.threshold,
			Signal:    sp.signal,
			Result:    res,
		})
	}
	return ev, nil
}
