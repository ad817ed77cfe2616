package ports

import (
	"context"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// Notifier presenta los resultados al usuario.
// En la implementación de consola, imprime tablas formateadas.
type Notifier interface {
	NotifyAnalysis(ctx context.Context, report domain.AnalysisReport) error
	NotifyScan(ctx context.Context, results []domain.ScanResult) error
	NotifyIntegrity(ctx context.Context, report domain.IntegrityReport) error
}
