package domain

import "time"

// Action es la acción asociada a un attractor y al tipo de decisión final.
type Action int

const (
	ActionWait Action = iota
	ActionPass
	ActionReduce
	ActionPrepare
	ActionExecute
)

// String devuelve el nombre de la acción para logs, journal y export.
func (a Action) String() string {
	switch a {
	case ActionExecute:
		return "EXECUTE"
	case ActionPrepare:
		return "PREPARE"
	case ActionReduce:
		return "REDUCE"
	case ActionPass:
		return "PASS"
	default:
		return "WAIT"
	}
}

// ParseAction es la inversa de String. Nombres desconocidos caen en WAIT.
func ParseAction(s string) Action {
	switch s {
	case "EXECUTE":
		return ActionExecute
	case "PREPARE":
		return ActionPrepare
	case "REDUCE":
		return ActionReduce
	case "PASS":
		return ActionPass
	default:
		return ActionWait
	}
}

// Allocation es la asignación de capital para una oportunidad concreta.
type Allocation struct {
	GameID       string
	Fraction     float64 // fracción del bankroll en [0, maxBetFraction]
	DollarAmount float64 // bankroll × fraction, redondeado a centavos
	Edge         float64 // edge origen, para auditoría
	Confidence   float64 // confianza origen, para auditoría
}

// Decision es el output final de un tick. Inmutable una vez devuelta;
// el motor retiene una copia en su historial acotado para cooldown/rachas.
type Decision struct {
	ID          string
	Execute     bool
	Type        Action
	Allocations []Allocation
	Confidence  float64
	Attractor   string
	Reasons     []string
	Timestamp   time.Time
}

// TotalFraction devuelve la suma de fracciones asignadas.
func (d Decision) TotalFraction() float64 {
	total := 0.0
	for _, a := range d.Allocations {
		total += a.Fraction
	}
	return total
}

// EventType clasifica las notificaciones emitidas junto a la Decision.
type EventType string

const (
	EventAttractorChange EventType = "attractor_change"
	EventHoleDetected    EventType = "hole_detected"
)

// Event es una notificación de un tick. Sustituye a los callbacks globales:
// el caller las recibe junto a la Decision y decide qué hacer con ellas.
type Event struct {
	Type         EventType
	Detail       string
	GameIDs      []string
	Significance float64
}
