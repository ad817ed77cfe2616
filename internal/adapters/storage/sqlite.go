package storage

// sqlite.go: caché persistente de historias frozen y del radar.
//
// Estrategia:
//   - `frozen_meta`: una fila por (ticker, params). Guarda versión de esquema,
//     rango de la serie usada y cuándo se calculó.
//   - `frozen_points`: los puntos en bruto de cada historia. Se reescriben
//     enteros en cada Save (DELETE + INSERT en una transacción).
//   - `scans`: UNA fila por ticker (UPSERT) con el último resultado del radar.
//   - Cache en memoria: evita releer de disco una historia ya cargada.
//   - Prune automático al arrancar: historias > 30d, scans no vistos en 14d.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS frozen_meta (
    ticker         TEXT    NOT NULL,
    params_key     TEXT    NOT NULL,
    schema_version INTEGER NOT NULL,
    series_start   TEXT    NOT NULL,
    series_end     TEXT    NOT NULL,
    computed_at    TEXT    NOT NULL,
    points         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (ticker, params_key)
);

CREATE TABLE IF NOT EXISTS frozen_points (
    ticker      TEXT NOT NULL,
    params_key  TEXT NOT NULL,
    date        TEXT NOT NULL,
    kinetic     REAL NOT NULL,
    potential   REAL NOT NULL,
    raw_sum     REAL NOT NULL,
    path        REAL NOT NULL,
    ghost_slope REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (ticker, params_key, date)
);

-- Último resultado del radar por ticker, sin duplicados
CREATE TABLE IF NOT EXISTS scans (
    ticker        TEXT PRIMARY KEY,
    as_of         TEXT NOT NULL,
    price         REAL NOT NULL,
    change_pct    REAL NOT NULL DEFAULT 0,
    z_kinetic     REAL NOT NULL DEFAULT 0,
    z_potential   REAL NOT NULL DEFAULT 0,
    avg_abs_kin   REAL NOT NULL DEFAULT 0,
    sum_in_pos    INTEGER NOT NULL DEFAULT 0,
    sum_direction TEXT,
    sum_return    REAL NOT NULL DEFAULT 0,
    first_seen    TEXT NOT NULL,
    last_seen     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_meta_computed ON frozen_meta(computed_at);
CREATE INDEX IF NOT EXISTS idx_scans_last    ON scans(last_seen DESC);
`

const (
	retentionFrozen = 30 * 24 * time.Hour                   // historias: 30 días
	retentionScans  = 14 * 24 * time.Hour                   // radar: 14 días
	timeLayout      = "2006-01-02T15:04:05.000000000Z07:00" // ancho fijo: ordena como texto
)

// SQLiteStore implementa ports.FrozenStore y ports.ScanStore usando SQLite
// (pure Go, sin CGo).
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]domain.FrozenHistory // cacheKey → historia cargada
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// maxAge <= 0 desactiva la caducidad. Aplica el schema y limpia datos antiguos.
func NewSQLiteStore(path string, maxAge time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		maxAge: maxAge,
		now:    func() time.Time { return time.Now().UTC() },
		cache:  make(map[string]domain.FrozenHistory),
	}
	s.pruneOld(context.Background())
	return s, nil
}

// Load devuelve la historia de (ticker, params) o ports.ErrCacheMiss si no
// existe, caducó o fue escrita con otra versión de esquema.
func (s *SQLiteStore) Load(ctx context.Context, ticker string, params domain.FrozenParams) (domain.FrozenHistory, error) {
	key := cacheKey(ticker, params)

	s.mu.Lock()
	h, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		if s.expired(h.ComputedAt) {
			return domain.FrozenHistory{}, ports.ErrCacheMiss
		}
		return cloneHistory(h), nil
	}

	var (
		version                   int
		startStr, endStr, compStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT schema_version, series_start, series_end, computed_at
		FROM frozen_meta WHERE ticker = ? AND params_key = ?
	`, ticker, paramsKey(params)).Scan(&version, &startStr, &endStr, &compStr)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FrozenHistory{}, ports.ErrCacheMiss
	}
	if err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("storage.Load: meta %s: %w", ticker, err)
	}
	if version != SchemaVersion {
		return domain.FrozenHistory{}, ports.ErrCacheMiss
	}

	h = domain.FrozenHistory{Ticker: ticker, Params: params}
	if h.SeriesStart, err = time.Parse(timeLayout, startStr); err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("storage.Load: parse series_start: %w", err)
	}
	if h.SeriesEnd, err = time.Parse(timeLayout, endStr); err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("storage.Load: parse series_end: %w", err)
	}
	if h.ComputedAt, err = time.Parse(timeLayout, compStr); err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("storage.Load: parse computed_at: %w", err)
	}
	if s.expired(h.ComputedAt) {
		return domain.FrozenHistory{}, ports.ErrCacheMiss
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, kinetic, potential, raw_sum, path, ghost_slope
		FROM frozen_points WHERE ticker = ? AND params_key = ?
		ORDER BY date
	`, ticker, paramsKey(params))
	if err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("storage.Load: query points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.FrozenPoint
		var dateStr string
		if err := rows.Scan(&dateStr, &p.Kinetic, &p.Potential, &p.RawSum, &p.Path, &p.GhostSlope); err != nil {
			return domain.FrozenHistory{}, fmt.Errorf("storage.Load: scan point: %w", err)
		}
		if p.Date, err = time.Parse(timeLayout, dateStr); err != nil {
			return domain.FrozenHistory{}, fmt.Errorf("storage.Load: parse date: %w", err)
		}
		h.Points = append(h.Points, p)
	}
	if err := rows.Err(); err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("storage.Load: rows: %w", err)
	}

	s.mu.Lock()
	s.cache[key] = h
	s.mu.Unlock()
	return cloneHistory(h), nil
}

// Save reemplaza la historia de (h.Ticker, h.Params) en una transacción.
func (s *SQLiteStore) Save(ctx context.Context, h domain.FrozenHistory) error {
	pk := paramsKey(h.Params)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Save: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM frozen_points WHERE ticker = ? AND params_key = ?`, h.Ticker, pk,
	); err != nil {
		return fmt.Errorf("storage.Save: clear points: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO frozen_meta
			(ticker, params_key, schema_version, series_start, series_end, computed_at, points)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, params_key) DO UPDATE SET
			schema_version = excluded.schema_version,
			series_start   = excluded.series_start,
			series_end     = excluded.series_end,
			computed_at    = excluded.computed_at,
			points         = excluded.points
	`, h.Ticker, pk, SchemaVersion,
		fmtTime(h.SeriesStart), fmtTime(h.SeriesEnd), fmtTime(h.ComputedAt), len(h.Points),
	); err != nil {
		return fmt.Errorf("storage.Save: upsert meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO frozen_points
			(ticker, params_key, date, kinetic, potential, raw_sum, path, ghost_slope)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.Save: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range h.Points {
		if _, err := stmt.ExecContext(ctx,
			h.Ticker, pk, fmtTime(p.Date),
			p.Kinetic, p.Potential, p.RawSum, p.Path, p.GhostSlope,
		); err != nil {
			return fmt.Errorf("storage.Save: insert %s %s: %w", h.Ticker, p.Date.Format(time.DateOnly), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Save: commit: %w", err)
	}

	s.mu.Lock()
	s.cache[cacheKey(h.Ticker, h.Params)] = cloneHistory(h)
	s.mu.Unlock()
	return nil
}

// SaveScan hace upsert del último resultado del radar por ticker.
func (s *SQLiteStore) SaveScan(ctx context.Context, results []domain.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	now := fmtTime(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scans
			(ticker, as_of, price, change_pct, z_kinetic, z_potential, avg_abs_kin,
			 sum_in_pos, sum_direction, sum_return, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			as_of         = excluded.as_of,
			price         = excluded.price,
			change_pct    = excluded.change_pct,
			z_kinetic     = excluded.z_kinetic,
			z_potential   = excluded.z_potential,
			avg_abs_kin   = excluded.avg_abs_kin,
			sum_in_pos    = excluded.sum_in_pos,
			sum_direction = excluded.sum_direction,
			sum_return    = excluded.sum_return,
			last_seen     = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		inPos := 0
		if r.Sum.InPosition {
			inPos = 1
		}
		if _, err := stmt.ExecContext(ctx,
			r.Ticker, fmtTime(r.AsOf), r.Price, r.ChangePct,
			r.ZKinetic, r.ZPotential, r.AvgAbsKinetic,
			inPos, r.Sum.Direction.String(), r.Sum.TotalReturn,
			now, // first_seen: ignorado en ON CONFLICT
			now,
		); err != nil {
			return fmt.Errorf("storage.SaveScan: upsert %s: %w", r.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveScan: commit: %w", err)
	}
	return nil
}

// GetScans devuelve los resultados del radar vistos en [from, to], por ticker.
func (s *SQLiteStore) GetScans(ctx context.Context, from, to time.Time) ([]domain.ScanResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, as_of, price, change_pct, z_kinetic, z_potential, avg_abs_kin,
		       sum_in_pos, sum_direction, sum_return
		FROM scans
		WHERE last_seen BETWEEN ? AND ?
		ORDER BY ticker
	`, fmtTime(from.UTC()), fmtTime(to.UTC()))
	if err != nil {
		return nil, fmt.Errorf("storage.GetScans: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ScanResult
	for rows.Next() {
		var (
			r            domain.ScanResult
			asOf, dirStr string
			inPos        int
		)
		if err := rows.Scan(
			&r.Ticker, &asOf, &r.Price, &r.ChangePct, &r.ZKinetic, &r.ZPotential,
			&r.AvgAbsKinetic, &inPos, &dirStr, &r.Sum.TotalReturn,
		); err != nil {
			return nil, fmt.Errorf("storage.GetScans: scan row: %w", err)
		}
		r.AsOf, _ = time.Parse(timeLayout, asOf)
		r.Sum.InPosition = inPos == 1
		r.Sum.Direction = parseDirection(dirStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStore) expired(computedAt time.Time) bool {
	return s.maxAge > 0 && s.now().Sub(computedAt) > s.maxAge
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoffFrozen := fmtTime(s.now().Add(-retentionFrozen))
	cutoffScans := fmtTime(s.now().Add(-retentionScans))
	s.db.ExecContext(ctx, `DELETE FROM frozen_meta WHERE computed_at < ?`, cutoffFrozen)
	s.db.ExecContext(ctx, `
		DELETE FROM frozen_points WHERE NOT EXISTS (
			SELECT 1 FROM frozen_meta m
			WHERE m.ticker = frozen_points.ticker AND m.params_key = frozen_points.params_key
		)`)
	s.db.ExecContext(ctx, `DELETE FROM scans WHERE last_seen < ?`, cutoffScans)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseDirection(s string) domain.Direction {
	switch s {
	case "LONG":
		return domain.Long
	case "SHORT":
		return domain.Short
	}
	return 0
}
