package attractor

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/geobet/internal/domain"
)

// Comparator indica si el umbral de una condición es mínimo o máximo.
type Comparator int

const (
	Min Comparator = iota // valor >= umbral
	Max                   // valor <= umbral
)

// Condition es una desigualdad sobre un canal sin escalar.
// Lista cerrada de triples (canal, comparador, umbral): un único matcher
// genérico las evalúa, sin dispatch por strings.
type Condition struct {
	Channel    domain.Channel
	Comparator Comparator
	Threshold  float64
}

// Definition es una configuración nombrada del catálogo de attractors.
type Definition struct {
	Name            string
	Action          domain.Action
	KellyMultiplier float64
	Conditions      []Condition
}

// Match es el resultado de clasificar el estado del portfolio.
type Match struct {
	Name            string
	Action          domain.Action
	KellyMultiplier float64
	Strength        float64 // fracción de condiciones satisfechas, en [0,1]
}

// value extrae del vector sin escalar el valor que corresponde al canal.
// InvConfidence se evalúa como confianza directa y Momentum como delta de
// edge: son las unidades naturales en las que están definidos los umbrales.
func value(u domain.UnscaledChannels, ch domain.Channel) float64 {
	switch ch {
	case domain.ChannelEdge:
		return u.Edge
	case domain.ChannelInvConfidence:
		return u.Confidence
	case domain.ChannelTimePressure:
		return u.TimePressure
	case domain.ChannelCorrelation:
		return u.Correlation
	case domain.ChannelEfficiency:
		return u.Efficiency
	default:
		return u.Momentum
	}
}

// satisfied evalúa una condición contra el vector sin escalar.
func (c Condition) satisfied(u domain.UnscaledChannels) bool {
	v := value(u, c.Channel)
	if c.Comparator == Min {
		return v >= c.Threshold
	}
	return v <= c.Threshold
}

// Classify puntúa el estado contra cada definición y devuelve la mejor.
// La fuerza del match es (condiciones satisfechas / condiciones declaradas);
// los empates favorecen a la definición declarada antes (orden estable).
func Classify(defs []Definition, u domain.UnscaledChannels) Match {
	best := Match{Name: defs[0].Name, Action: defs[0].Action, KellyMultiplier: defs[0].KellyMultiplier}
	bestFraction := -1.0

	for _, def := range defs {
		hits := 0
		for _, cond := range def.Conditions {
			if cond.satisfied(u) {
				hits++
			}
		}
		fraction := float64(hits) / float64(len(def.Conditions))
		// > estricto: el primero declarado gana los empates
		if fraction > bestFraction {
			bestFraction = fraction
			best = Match{
				Name:            def.Name,
				Action:          def.Action,
				KellyMultiplier: def.KellyMultiplier,
				Strength:        fraction,
			}
		}
	}
	return best
}

// Validate comprueba que el catálogo es bien formado. Un catálogo malformado
// es un error de programación: el motor debe fallar al construirse, no por tick.
func Validate(defs []Definition) error {
	if len(defs) == 0 {
		return fmt.Errorf("attractor.Validate: empty catalog")
	}
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("attractor.Validate: definition %d has no name", i)
		}
		if seen[def.Name] {
			return fmt.Errorf("attractor.Validate: duplicate name %q", def.Name)
		}
		seen[def.Name] = true

		if def.KellyMultiplier < 0 || def.KellyMultiplier > 1 {
			return fmt.Errorf("attractor.Validate: %q kelly multiplier %v outside [0,1]", def.Name, def.KellyMultiplier)
		}
		if len(def.Conditions) == 0 {
			return fmt.Errorf("attractor.Validate: %q has no conditions", def.Name)
		}
		for _, cond := range def.Conditions {
			if cond.Channel < 0 || cond.Channel >= domain.NumChannels {
				return fmt.Errorf("attractor.Validate: %q references unknown channel %d", def.Name, cond.Channel)
			}
			if cond.Comparator != Min && cond.Comparator != Max {
				return fmt.Errorf("attractor.Validate: %q has invalid comparator %d", def.Name, cond.Comparator)
			}
			if math.IsNaN(cond.Threshold) || math.IsInf(cond.Threshold, 0) {
				return fmt.Errorf("attractor.Validate: %q has non-finite threshold", def.Name)
			}
		}
	}
	return nil
}
