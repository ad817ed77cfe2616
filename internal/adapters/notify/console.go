package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// maxTradesShown limita la tabla de trades por estrategia.
const maxTradesShown = 5

// Console implementa ports.Notifier escribiendo informes en texto.
type Console struct {
	out     io.Writer
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, compact: compact}
}

// NewConsoleWriter crea un notificador sobre w (tests, archivos).
func NewConsoleWriter(w io.Writer, compact bool) *Console {
	return &Console{out: w, compact: compact}
}

// NotifyAnalysis imprime el análisis completo de un ticker.
func (c *Console) NotifyAnalysis(_ context.Context, r domain.AnalysisReport) error {
	if len(r.Prices) == 0 {
		fmt.Fprintf(c.out, "[%s] %s: sin datos\n", time.Now().Format("15:04:05"), r.Ticker)
		return nil
	}

	last := r.Prices[len(r.Prices)-1]
	fmt.Fprintf(c.out, "\n=== %s @ %s  price %s  (run %s) ===\n",
		r.Ticker, r.AsOf.Format(time.DateOnly), money(last), shortID(r.RunID.String()))
	fmt.Fprintf(c.out, "  z kinetic %s | z slope %s | ROC20 %s%% | avg |z kin| %s\n",
		num(lastOf(r.ZKinetic), 2), num(lastOf(r.ZSlope), 2), num(lastOf(r.ROC), 2), num(r.AvgAbsKinetic, 2))
	if n := r.Trajectory.Len(); n > 0 {
		fmt.Fprintf(c.out, "  fair value x* %s | F %s | α=%s β=%s\n",
			money(r.Trajectory.Path[n-1]), money(r.Trajectory.Fundamental[n-1]),
			num(r.Trajectory.Params.Alpha, 0), num(r.Trajectory.Params.Beta, 2))
	}

	if c.compact {
		var sb strings.Builder
		for _, s := range r.Strategies {
			fmt.Fprintf(&sb, " | %s %s%% %s", s.Kind, num(s.Result.Stats.TotalReturn, 1), positionLabel(s.Result))
		}
		fmt.Fprintf(c.out, "  strategies%s\n", sb.String())
		return nil
	}

	c.printStrategies(r.Strategies)
	for _, s := range r.Strategies {
		c.printTrades(s)
	}
	c.printSpectral(r.Spectral, r.Forecast)
	return nil
}

func (c *Console) printStrategies(outcomes []domain.StrategyOutcome) {
	if len(outcomes) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Strategy", "Thr", "Trades", "Win%", "Return%", "MaxDD%", "Capital", "Now")
	for _, s := range outcomes {
		st := s.Result.Stats
		table.Append(
			string(s.Kind),
			num(s.Threshold, 2),
			fmt.Sprintf("%d", st.TotalTrades),
			num(st.WinRate, 1),
			num(st.TotalReturn, 2),
			num(st.MaxDrawdown, 2),
			money(st.FinalCapital),
			positionLabel(s.Result),
		)
	}
	table.Render()
}

func (c *Console) printTrades(s domain.StrategyOutcome) {
	trades := s.Result.Trades
	if len(trades) == 0 {
		return
	}
	if len(trades) > maxTradesShown {
		trades = trades[len(trades)-maxTradesShown:]
	}
	fmt.Fprintf(c.out, "\n  %s: últimos %d de %d trades\n", s.Kind, len(trades), len(s.Result.Trades))
	table := tablewriter.NewWriter(c.out)
	table.Header("Dir", "Entry", "Price", "Exit", "Price", "PnL%", "")
	for _, t := range trades {
		exit := t.ExitDate.Format(time.DateOnly)
		status := ""
		if t.Open {
			status = "OPEN"
		}
		table.Append(
			t.Direction.String(),
			t.EntryDate.Format(time.DateOnly),
			money(t.EntryPrice),
			exit,
			money(t.ExitPrice),
			num(t.PnLPct, 2),
			status,
		)
	}
	table.Render()
}

func (c *Console) printSpectral(m domain.SpectralModel, f domain.Forecast) {
	if len(m.Components) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  Ciclos dominantes (%d muestras, trend %s/bar log)\n", m.N, num(m.Trend.Slope, 5))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Period", "Amplitude", "Phase")
	for i, comp := range m.Components {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", comp.Period),
			num(comp.Amplitude, 4),
			num(comp.Phase, 3),
		)
	}
	table.Render()

	future := f.Future()
	if len(future) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, sc := range f.Scenarios {
		if len(sc) == 0 {
			continue
		}
		v := sc[len(sc)-1]
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	target := future[len(future)-1]
	fmt.Fprintf(c.out, "  Forecast %d barras: base %s", f.Horizon, money(target))
	if len(f.FutureDates) > 0 {
		fmt.Fprintf(c.out, " (%s)", f.FutureDates[len(f.FutureDates)-1].Format(time.DateOnly))
	}
	if len(f.Scenarios) > 1 {
		fmt.Fprintf(c.out, " | escenarios %s .. %s", money(lo), money(hi))
	}
	fmt.Fprintln(c.out)
}

// NotifyScan imprime el radar de tickers.
func (c *Console) NotifyScan(_ context.Context, results []domain.ScanResult) error {
	now := time.Now().Format("15:04:05")
	if len(results) == 0 {
		fmt.Fprintf(c.out, "[%s] no tickers scanned\n", now)
		return nil
	}

	if c.compact {
		for _, r := range results {
			fmt.Fprintf(c.out, "[%s] %-6s %s (%s%%) zK %s zP %s | SUM %s | STABLE %s\n",
				now, r.Ticker, money(r.Price), num(r.ChangePct, 2),
				num(r.ZKinetic, 2), num(r.ZPotential, 2),
				snapshotLabel(r.Sum), stableLabel(r.Stable))
		}
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] radar: %d tickers\n", now, len(results))
	table := tablewriter.NewWriter(c.out)
	table.Header("Ticker", "As of", "Price", "Chg%", "zKin", "zPot", "zSlope", "|zK|avg", "FROZEN", "SUM", "STABLE")
	for _, r := range results {
		table.Append(
			r.Ticker,
			r.AsOf.Format(time.DateOnly),
			money(r.Price),
			num(r.ChangePct, 2),
			num(r.ZKinetic, 2),
			num(r.ZPotential, 2),
			num(r.ZSlope, 2),
			num(r.AvgAbsKinetic, 2),
			snapshotLabel(r.Frozen),
			snapshotLabel(r.Sum),
			stableLabel(r.Stable),
		)
	}
	table.Render()
	return nil
}

// NotifyIntegrity imprime el resultado de la verificación de integridad.
func (c *Console) NotifyIntegrity(_ context.Context, r domain.IntegrityReport) error {
	verdict := "CLEAN"
	if !r.Clean() {
		verdict = "CORRUPTED"
	}
	fmt.Fprintf(c.out, "\n=== INTEGRITY %s %s: %s ===\n", r.Ticker, r.Strategy, verdict)
	fmt.Fprintf(c.out, "  replays: %d | trades vistos: %d | alterados: %d\n",
		r.Replays, r.TotalTrades, len(r.Corrupted))
	if r.Clean() {
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Entry", "Dir", "Price", "First seen", "Changes")
	for _, tc := range r.Corrupted {
		table.Append(
			tc.EntryDate.Format(time.DateOnly),
			tc.FirstSeen.Direction.String(),
			money(tc.FirstSeen.EntryPrice),
			tc.FirstSeenAt.Format(time.DateOnly),
			strings.Join(tc.Changes, "; "),
		)
	}
	table.Render()
	return nil
}

// --- helpers ---

func num(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	d := decimal.NewFromFloat(v)
	if d.Abs().LessThan(decimal.NewFromInt(1)) {
		return d.StringFixed(4)
	}
	return d.StringFixed(2)
}

func lastOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

func positionLabel(r domain.BacktestResult) string {
	if t, ok := r.OpenTrade(); ok {
		return fmt.Sprintf("%s %s%%", t.Direction, num(t.PnLPct, 2))
	}
	return "flat"
}

func snapshotLabel(s domain.StrategySnapshot) string {
	if !s.InPosition {
		return fmt.Sprintf("flat (%s%%)", num(s.TotalReturn, 1))
	}
	return fmt.Sprintf("%s %s%%", s.Direction, num(s.OpenPnLPct, 2))
}

func stableLabel(s domain.StableSnapshot) string {
	if !s.InPosition {
		return "flat"
	}
	return fmt.Sprintf("%s since %s", s.Direction, s.EntryDate.Format("01-02"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// NotifyForecast imprime solo el modelo espectral y la proyección día a día.
func (c *Console) NotifyForecast(_ context.Context, r domain.AnalysisReport) error {
	f := r.Forecast
	future := f.Future()
	fmt.Fprintf(c.out, "\n=== %s forecast %d barras desde %s ===\n", r.Ticker, f.Horizon, r.AsOf.Format(time.DateOnly))
	if len(future) == 0 {
		fmt.Fprintln(c.out, "  sin proyección")
		return nil
	}
	c.printSpectral(r.Spectral, f)

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Base", "Min", "Max")
	offset := len(f.Base) - len(future)
	for i, v := range future {
		lo, hi := v, v
		for _, sc := range f.Scenarios {
			if offset+i < len(sc) {
				lo, hi = math.Min(lo, sc[offset+i]), math.Max(hi, sc[offset+i])
			}
		}
		date := ""
		if i < len(f.FutureDates) {
			date = f.FutureDates[i].Format(time.DateOnly)
		}
		table.Append(date, money(v), money(lo), money(hi))
	}
	table.Render()
	return nil
}
