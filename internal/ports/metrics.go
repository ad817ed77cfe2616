package ports

import (
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// Metrics registra la actividad del motor. Las implementaciones deben ser
// seguras para uso concurrente.
type Metrics interface {
	ObserveFrozenBuild(ticker string, points int, took time.Duration)
	FrozenCache(hit bool)
	ObserveAnalysis(ticker string, took time.Duration, err error)
	ObserveTrades(strategy domain.StrategyKind, trades int)
}
