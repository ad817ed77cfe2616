// Package csvfeed implementa ports.PriceProvider sobre un directorio local
// con un archivo <TICKER>.csv por símbolo.
package csvfeed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// Formatos de fecha aceptados, en orden.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
}

// Columnas de precio aceptadas, en orden de preferencia.
var closeColumns = []string{"close", "adj close", "adj_close", "price"}

// Feed lee series de cierre desde CSV.
type Feed struct {
	dir string
}

// New crea un Feed sobre dir.
func New(dir string) *Feed {
	return &Feed{dir: dir}
}

// Fetch lee <dir>/<TICKER>.csv. Las filas sin precio válido se descartan,
// las fechas se ordenan y un duplicado conserva la última fila.
func (f *Feed) Fetch(ctx context.Context, ticker string) (domain.PriceSeries, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return domain.PriceSeries{}, domain.Invalid("csvfeed.Fetch", "empty ticker")
	}
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}

	path := f.resolve(ticker)
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.PriceSeries{}, domain.Invalid("csvfeed.Fetch", "unknown ticker %q (no %s)", ticker, path)
	}
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvfeed.Fetch: open %q: %w", path, err)
	}
	defer file.Close()

	pts, skipped, err := parse(file)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvfeed.Fetch: %s: %w", path, err)
	}
	if skipped > 0 {
		slog.Debug("csvfeed: filas descartadas", "ticker", ticker, "skipped", skipped)
	}

	ps, err := domain.NewPriceSeries(ticker, pts)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("csvfeed.Fetch: %w", err)
	}
	return ps, nil
}

// Tickers lista los símbolos disponibles en el directorio, ordenados.
func (f *Feed) Tickers(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("csvfeed.Tickers: read dir %q: %w", f.dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		out = append(out, strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name))))
	}
	sort.Strings(out)
	return out, nil
}

// resolve busca <TICKER>.csv sin distinguir mayúsculas.
func (f *Feed) resolve(ticker string) string {
	exact := filepath.Join(f.dir, ticker+".csv")
	if _, err := os.Stat(exact); err == nil {
		return exact
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return exact
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.EqualFold(name, ticker+".csv") {
			return filepath.Join(f.dir, name)
		}
	}
	return exact
}

func parse(r io.Reader) ([]domain.PricePoint, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	dateCol, closeCol := columns(header)
	if dateCol < 0 || closeCol < 0 {
		return nil, 0, domain.Invalid("csvfeed.parse", "header %v needs date and close columns", header)
	}

	byDate := make(map[time.Time]float64)
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}
		if dateCol >= len(rec) || closeCol >= len(rec) {
			skipped++
			continue
		}
		d, ok := parseDate(rec[dateCol])
		if !ok {
			skipped++
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			skipped++
			continue
		}
		byDate[d] = v
	}

	pts := make([]domain.PricePoint, 0, len(byDate))
	for d, v := range byDate {
		pts = append(pts, domain.PricePoint{Time: d, Value: v})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
	return pts, skipped, nil
}

func columns(header []string) (dateCol, closeCol int) {
	dateCol, closeCol = -1, -1
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, name := range []string{"date", "datetime", "timestamp"} {
		if i, ok := idx[name]; ok {
			dateCol = i
			break
		}
	}
	for _, name := range closeColumns {
		if i, ok := idx[name]; ok {
			closeCol = i
			break
		}
	}
	return dateCol, closeCol
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
