package ports

import (
	"context"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// TickSnapshot es el conjunto de oportunidades de un tick junto con
// su contexto por juego.
type TickSnapshot struct {
	Opportunities []domain.Opportunity
	Contexts      map[string]domain.Context
}

// Feed entrega snapshots de oportunidades tick a tick. La captura de
// odds en vivo queda fuera del core: cualquier fuente que produzca
// snapshots sirve.
type Feed interface {
	// Next devuelve el siguiente snapshot. Devuelve io.EOF cuando la
	// fuente se agota.
	Next(ctx context.Context) (TickSnapshot, error)
}
