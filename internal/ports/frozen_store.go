package ports

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// ErrCacheMiss indica que no hay una historia frozen válida para la clave pedida.
var ErrCacheMiss = errors.New("frozen cache miss")

// FrozenStore persiste historias frozen en bruto para no recalcularlas.
// Una entrada solo es válida si coinciden ticker, params y versión de esquema,
// y si no ha caducado.
type FrozenStore interface {
	// Load devuelve la historia guardada o ErrCacheMiss.
	Load(ctx context.Context, ticker string, params domain.FrozenParams) (domain.FrozenHistory, error)

	// Save reemplaza la historia de (ticker, params).
	Save(ctx context.Context, h domain.FrozenHistory) error

	// Close libera los recursos del store.
	Close() error
}

// ScanStore guarda el último resultado del radar por ticker.
type ScanStore interface {
	SaveScan(ctx context.Context, results []domain.ScanResult) error
	GetScans(ctx context.Context, from, to time.Time) ([]domain.ScanResult, error)
}
