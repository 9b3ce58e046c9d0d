package ports

import (
	"context"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// Notifier presenta cada decisión del engine al usuario.
type Notifier interface {
	// Notify muestra la decisión del tick con sus allocations.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, decision domain.Decision, events []domain.Event) error
}
