package ports

import (
	"context"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// PriceProvider obtiene la serie de cierres de un ticker.
type PriceProvider interface {
	// Fetch devuelve la serie completa disponible, ordenada y validada.
	Fetch(ctx context.Context, ticker string) (domain.PriceSeries, error)

	// Tickers lista los símbolos disponibles en la fuente.
	Tickers(ctx context.Context) ([]string, error)
}
