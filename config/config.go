package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de fairpath.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Frozen   FrozenConfig   `yaml:"frozen"`
	ZScore   ZScoreConfig   `yaml:"zscore"`
	Backtest BacktestConfig `yaml:"backtest"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Data     DataConfig     `yaml:"data"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AnalysisConfig controla el solver y el análisis espectral.
type AnalysisConfig struct {
	Alpha        float64 `yaml:"alpha"` // inercia
	Beta         float64 `yaml:"beta"`  // rigidez
	EMASpan      int     `yaml:"ema_span"`
	TopK         int     `yaml:"top_k"`
	Window       *int    `yaml:"spectral_window"` // últimas W barras; 0 = serie completa
	ForecastDays int     `yaml:"forecast_days"`
	Scenarios    int     `yaml:"scenarios"`
	PhaseJitter  float64 `yaml:"phase_jitter"`
	Seed         uint64  `yaml:"seed"`
	StartDate    string  `yaml:"start_date"` // YYYY-MM-DD, vacío = todo
}

// FrozenConfig controla el recálculo point-in-time.
type FrozenConfig struct {
	Lag          int  `yaml:"lag"`
	MinPoints    int  `yaml:"min_points"`
	Stride       int  `yaml:"stride"`
	Lookback     int  `yaml:"lookback"`      // 0 = prefijo completo
	GhostHorizon *int `yaml:"ghost_horizon"` // 0 = pendiente final sin extensión
	Workers      int  `yaml:"workers"`       // 0 = NumCPU
}

// ZScoreConfig controla la normalización rolling.
type ZScoreConfig struct {
	Window     int     `yaml:"window"`
	MinPeriods int     `yaml:"min_periods"`
	Epsilon    float64 `yaml:"epsilon"`
}

// BacktestConfig controla el backtester y la verificación de integridad.
type BacktestConfig struct {
	InitialCapital float64  `yaml:"initial_capital"`
	SumThreshold   *float64 `yaml:"sum_threshold"`
	Sentinel       *float64 `yaml:"sentinel"`
	StableAlpha    float64  `yaml:"stable_alpha"`
	StableMode     string   `yaml:"stable_mode"` // LONG | SHORT | BOTH
	VerifyStart    int      `yaml:"verify_start"`
	VerifyStep     int      `yaml:"verify_step"`
}

// ScannerConfig controla el radar.
type ScannerConfig struct {
	Workers    int      `yaml:"workers"`
	MinHistory int      `yaml:"min_history"`
	Tickers    []string `yaml:"tickers"` // vacío = todos los CSV de data.dir
}

// DataConfig indica de dónde salen los precios.
type DataConfig struct {
	Dir string `yaml:"dir"` // directorio con <TICKER>.csv
}

// StorageConfig controla la caché frozen y el histórico del radar.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory | sqlite
	DSN         string `yaml:"dsn"`    // ruta al archivo SQLite, o ":memory:"
	MaxAgeHours int    `yaml:"max_age_hours"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// MetricsConfig controla el volcado de métricas Prometheus.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // vacío = desactivado
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un path vacío o inexistente usa solo defaults y variables de entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// sin archivo: defaults
		case err != nil:
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// StartDate devuelve analysis.start_date parseada (zero si está vacía).
func (c *Config) StartDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.Analysis.StartDate)
	return t
}

// MaxAge devuelve la caducidad de la caché frozen.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Storage.MaxAgeHours) * time.Hour
}

func (c *Config) validate() error {
	if c.Analysis.StartDate != "" {
		if _, err := time.Parse(time.DateOnly, c.Analysis.StartDate); err != nil {
			return fmt.Errorf("config.Load: analysis.start_date %q: %w", c.Analysis.StartDate, err)
		}
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config.Load: storage.driver %q (want memory|sqlite)", c.Storage.Driver)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FAIRPATH_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("FAIRPATH_DB"); v != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("FAIRPATH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Frozen.Workers = n
		}
	}
	if v := os.Getenv("FAIRPATH_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	a := &cfg.Analysis
	if a.Alpha <= 0 {
		a.Alpha = 200
	}
	if a.Beta <= 0 {
		a.Beta = 1
	}
	if a.EMASpan <= 0 {
		a.EMASpan = 20
	}
	if a.TopK <= 0 {
		a.TopK = 5
	}
	if a.ForecastDays <= 0 {
		a.ForecastDays = 60
	}
	if a.Scenarios <= 0 {
		a.Scenarios = 5
	}
	if a.PhaseJitter <= 0 {
		a.PhaseJitter = 0.8
	}
	if a.Window == nil {
		a.Window = ptr(252)
	}

	f := &cfg.Frozen
	if f.Lag <= 0 {
		f.Lag = 25
	}
	if f.MinPoints <= 0 {
		f.MinPoints = 100
	}
	if f.Stride <= 0 {
		f.Stride = 1
	}
	if f.GhostHorizon == nil {
		f.GhostHorizon = ptr(10)
	} else if *f.GhostHorizon < 0 {
		*f.GhostHorizon = 0
	}

	z := &cfg.ZScore
	if z.Window <= 0 {
		z.Window = 252
	}
	if z.MinPeriods <= 0 {
		z.MinPeriods = 20
	}
	if z.Epsilon <= 0 {
		z.Epsilon = 1e-6
	}

	b := &cfg.Backtest
	if b.InitialCapital <= 0 {
		b.InitialCapital = 1000
	}
	// Punteros: 0 es un valor válido, solo se rellena lo que falta.
	if b.SumThreshold == nil {
		b.SumThreshold = ptr(-0.3)
	}
	if b.Sentinel == nil {
		b.Sentinel = ptr(-999.0)
	}
	if b.StableAlpha <= 0 {
		b.StableAlpha = 200
	}
	if b.StableMode == "" {
		b.StableMode = "LONG"
	}
	if b.VerifyStart <= 0 {
		b.VerifyStart = 504 // dos años de barras
	}
	if b.VerifyStep <= 0 {
		b.VerifyStep = 5
	}

	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 5
	}
	if cfg.Scanner.MinHistory <= 0 {
		cfg.Scanner.MinHistory = 100
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "fairpath.db"
	}
	if cfg.Storage.MaxAgeHours <= 0 {
		cfg.Storage.MaxAgeHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func ptr[T any](v T) *T { return &v }
