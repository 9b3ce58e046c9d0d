package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// Storage persiste el journal de decisiones del engine.
type Storage interface {
	// SaveDecision persiste una decisión con sus allocations.
	SaveDecision(ctx context.Context, decision domain.Decision) error

	// GetHistory devuelve las decisiones registradas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.Decision, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
