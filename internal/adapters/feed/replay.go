package feed

// replay.go — fuente de snapshots desde un archivo JSONL: una línea
// por tick. Sirve para backtests y para alimentar el engine sin
// capturar odds en vivo.

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alejandrodnm/geobet/internal/domain"
	"github.com/alejandrodnm/geobet/internal/ports"
)

type tickLine struct {
	Opportunities []opportunityLine      `json:"opportunities"`
	Contexts      map[string]contextLine `json:"contexts"`
}

type opportunityLine struct {
	GameID             string   `json:"game_id"`
	ModelProbability   float64  `json:"model_probability"`
	ImpliedProbability float64  `json:"implied_probability"`
	Confidence         float64  `json:"confidence"`
	AmericanOdds       float64  `json:"american_odds"`
	BetType            string   `json:"bet_type"`
	Line               *float64 `json:"line,omitempty"`
}

type contextLine struct {
	MinutesToClose     float64 `json:"minutes_to_close"`
	CorrelatedExposure float64 `json:"correlated_exposure"`
	MarketVolatility   float64 `json:"market_volatility"`
}

// Replay implementa ports.Feed leyendo ticks de un archivo JSONL.
type Replay struct {
	file    *os.File
	scanner *bufio.Scanner
	log     *slog.Logger
	line    int
}

// NewReplay abre el archivo de ticks.
func NewReplay(path string, log *slog.Logger) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed.NewReplay: open %q: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Replay{file: f, scanner: sc, log: log}, nil
}

// Next devuelve el siguiente tick. Las oportunidades que no validan
// se excluyen con un warning: nunca se convierten en un edge falso.
func (r *Replay) Next(ctx context.Context) (ports.TickSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.TickSnapshot{}, err
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return ports.TickSnapshot{}, fmt.Errorf("feed.Next: read line %d: %w", r.line+1, err)
		}
		return ports.TickSnapshot{}, io.EOF
	}
	r.line++

	var tick tickLine
	if err := json.Unmarshal(r.scanner.Bytes(), &tick); err != nil {
		return ports.TickSnapshot{}, fmt.Errorf("feed.Next: parse line %d: %w", r.line, err)
	}

	snap := ports.TickSnapshot{
		Contexts: make(map[string]domain.Context, len(tick.Contexts)),
	}
	for gameID, c := range tick.Contexts {
		snap.Contexts[gameID] = domain.Context{
			MinutesToClose:     c.MinutesToClose,
			CorrelatedExposure: c.CorrelatedExposure,
			MarketVolatility:   c.MarketVolatility,
		}
	}
	for _, o := range tick.Opportunities {
		opp := domain.Opportunity{
			GameID:             o.GameID,
			ModelProbability:   o.ModelProbability,
			ImpliedProbability: o.ImpliedProbability,
			Confidence:         o.Confidence,
			AmericanOdds:       o.AmericanOdds,
			BetType:            domain.BetType(o.BetType),
			Line:               o.Line,
		}
		if err := opp.Validate(); err != nil {
			r.log.Warn("opportunity dropped from feed", "line", r.line, "game_id", o.GameID, "error", err)
			continue
		}
		snap.Opportunities = append(snap.Opportunities, opp)
	}
	return snap, nil
}

// Close cierra el archivo subyacente.
func (r *Replay) Close() error {
	return r.file.Close()
}
