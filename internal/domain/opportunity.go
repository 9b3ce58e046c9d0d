package domain

import (
	"fmt"
	"math"
)

// BetType identifica el tipo de apuesta de una oportunidad.
type BetType string

const (
	BetMoneyline BetType = "moneyline"
	BetSpread    BetType = "spread"
	BetTotal     BetType = "total"
	BetProp      BetType = "prop"
)

// Opportunity es una oportunidad de apuesta tal como la entrega el feed de
// odds/modelo en cada tick. Inmutable durante el tick; el caller es el dueño.
type Opportunity struct {
	GameID             string
	ModelProbability   float64 // probabilidad estimada por el modelo
	ImpliedProbability float64 // probabilidad implícita en la línea del mercado
	Confidence         float64 // confianza del modelo en [0,1]
	AmericanOdds       float64 // cuota americana (+150, -110, ...)
	BetType            BetType
	Line               *float64 // spread/total; nil para moneyline
}

// Context es la señal auxiliar por oportunidad que acompaña a cada tick.
type Context struct {
	MinutesToClose     float64 // minutos hasta el cierre del mercado
	CorrelatedExposure float64 // fracción del bankroll ya expuesta a juegos correlacionados
	MarketVolatility   float64 // proxy de volatilidad de la línea (mayor = línea más blanda)
	PreviousEdge       float64 // edge del tick anterior, para momentum
	HasPreviousEdge    bool    // false en el primer tick de un juego
}

// Edge devuelve el edge crudo: probabilidad del modelo menos la implícita.
func (o Opportunity) Edge() float64 {
	return o.ModelProbability - o.ImpliedProbability
}

// Validate comprueba los campos mínimos que exige el contrato con el feed.
// Una oportunidad inválida se excluye del tick (fail closed), nunca se
// completa con defaults que fabricarían un edge falso.
func (o Opportunity) Validate() error {
	if o.GameID == "" {
		return fmt.Errorf("opportunity: missing game_id")
	}
	if math.IsNaN(o.ModelProbability) || o.ModelProbability <= 0 || o.ModelProbability >= 1 {
		return fmt.Errorf("opportunity %s: model probability %v outside (0,1)", o.GameID, o.ModelProbability)
	}
	if math.IsNaN(o.ImpliedProbability) || o.ImpliedProbability <= 0 || o.ImpliedProbability >= 1 {
		return fmt.Errorf("opportunity %s: implied probability %v outside (0,1)", o.GameID, o.ImpliedProbability)
	}
	if math.IsNaN(o.AmericanOdds) {
		return fmt.Errorf("opportunity %s: odds is NaN", o.GameID)
	}
	return nil
}
