package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/fairpath/internal/application/analysis"
	"github.com/alejandrodnm/fairpath/internal/backtest"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/spf13/cobra"
)

// requestFlags son los flags compartidos por analyze y forecast.
type requestFlags struct {
	start   string
	end     string
	noCache bool
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first date of the series, YYYY-MM-DD (default analysis.start_date)")
	cmd.Flags().StringVar(&f.end, "end", "", "simulate the past: only data up to this date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "rebuild the frozen history instead of reusing the cache")
}

func (f *requestFlags) request(a *app, ticker string) (analysis.Request, error) {
	req := analysis.Request{
		Ticker:   strings.ToUpper(ticker),
		Start:    a.cfg.StartDate(),
		UseCache: !f.noCache,
	}
	if f.start != "" {
		t, err := parseDate("start", f.start)
		if err != nil {
			return req, err
		}
		req.Start = t
	}
	end, err := parseDate("end", f.end)
	if err != nil {
		return req, err
	}
	req.End = end
	return req, nil
}

func newAnalyzeCmd(current func() *app) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "analyze TICKER",
		Short: "Fair-value path, the four strategy backtests and the spectral forecast for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			req, err := flags.request(a, args[0])
			if err != nil {
				return err
			}
			rep, err := a.analysis.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.console.NotifyAnalysis(cmd.Context(), rep)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newForecastCmd(current func() *app) *cobra.Command {
	var (
		flags requestFlags
		days  int
	)
	cmd := &cobra.Command{
		Use:   "forecast TICKER",
		Short: "Dominant cycles and the scenario forecast for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			req, err := flags.request(a, args[0])
			if err != nil {
				return err
			}
			if days > 0 {
				a.cfg.Analysis.ForecastDays = days
				a.analysis = analysis.NewService(a.prices, a.store, a.recorder, analysisConfig(a.cfg))
			}
			rep, err := a.analysis.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.console.NotifyForecast(cmd.Context(), rep)
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&days, "days", 0, "forecast horizon in bars (default analysis.forecast_days)")
	return cmd
}

func newScanCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [TICKER...]",
		Short: "Radar over many tickers (default scanner.tickers, then every CSV in data.dir)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			tickers := args
			if len(tickers) == 0 {
				tickers = a.cfg.Scanner.Tickers
			}
			for i := range tickers {
				tickers[i] = strings.ToUpper(tickers[i])
			}
			s, err := a.newScanner()
			if err != nil {
				return err
			}
			_, err = s.RunOnce(cmd.Context(), tickers)
			return err
		},
	}
}

func newVerifyCmd(current func() *app) *cobra.Command {
	var (
		strategy string
		start    string
		from     int
		step     int
		noCache  bool
	)
	cmd := &cobra.Command{
		Use:   "verify TICKER",
		Short: "Replay a strategy over growing prefixes and report trades that change retroactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			kind, ok := domain.ParseStrategyKind(strings.ToUpper(strategy))
			if !ok {
				return domain.Invalid("verify", "unknown strategy %q", strategy)
			}
			req := analysis.VerifyRequest{
				Ticker:   strings.ToUpper(args[0]),
				Strategy: kind,
				Start:    a.cfg.StartDate(),
				Options:  backtest.DefaultIntegrity(),
				UseCache: !noCache,
			}
			if start != "" {
				t, err := parseDate("start", start)
				if err != nil {
					return err
				}
				req.Start = t
			}
			req.Options.Start = a.cfg.Backtest.VerifyStart
			req.Options.Step = a.cfg.Backtest.VerifyStep
			if from > 0 {
				req.Options.Start = from
			}
			if step > 0 {
				req.Options.Step = step
			}

			rep, err := a.analysis.Verify(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := a.console.NotifyIntegrity(cmd.Context(), rep); err != nil {
				return err
			}
			if !rep.Clean() {
				slog.Warn("integrity check failed", "ticker", rep.Ticker, "strategy", rep.Strategy, "corrupted", len(rep.Corrupted))
				return fmt.Errorf("%s %s: %d of %d trades changed retroactively", rep.Ticker, rep.Strategy, len(rep.Corrupted), rep.TotalTrades)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", string(domain.StrategySum), "LIVE|FROZEN|SUM|MINACTION")
	cmd.Flags().StringVar(&start, "start", "", "first date of the series, YYYY-MM-DD (default analysis.start_date)")
	cmd.Flags().IntVar(&from, "from", 0, "first prefix end index (default backtest.verify_start)")
	cmd.Flags().IntVar(&step, "step", 0, "bars between replays (default backtest.verify_step)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "rebuild the frozen history instead of reusing the cache")
	return cmd
}
