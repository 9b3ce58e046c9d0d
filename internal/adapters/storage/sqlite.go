package storage

// sqlite.go — journal de decisiones del engine.
//
// Estrategia:
//   - `decisions`: una fila por decisión, con atractor, confianza y
//     razones serializadas.
//   - `allocations`: una fila por allocation de cada decisión.
//   - Prune automático al arrancar: decisiones de más de 30 días.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/geobet/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id         TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL,
    execute    INTEGER  NOT NULL DEFAULT 0,
    type       TEXT     NOT NULL,
    attractor  TEXT     NOT NULL,
    confidence REAL     NOT NULL DEFAULT 0,
    reasons    TEXT     NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS allocations (
    decision_id   TEXT NOT NULL REFERENCES decisions(id) ON DELETE CASCADE,
    game_id       TEXT NOT NULL,
    fraction      REAL NOT NULL DEFAULT 0,
    dollar_amount REAL NOT NULL DEFAULT 0,
    edge          REAL NOT NULL DEFAULT 0,
    confidence    REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_decisions_at   ON decisions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_alloc_decision ON allocations(decision_id);
`

// retention limita el journal: las decisiones viejas no aportan señal.
const retention = 30 * 24 * time.Hour

// reasonSeparator serializa las razones en una sola columna. Ninguna
// razón generada por el engine contiene saltos de línea.
const reasonSeparator = "\n"

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia decisiones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveDecision persiste la decisión y sus allocations en una
// transacción.
func (s *SQLiteStorage) SaveDecision(ctx context.Context, d domain.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveDecision: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO decisions (id, created_at, execute, type, attractor, confidence, reasons)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp.UTC(), boolToInt(d.Execute), d.Type.String(), d.Attractor,
		d.Confidence, strings.Join(d.Reasons, reasonSeparator),
	); err != nil {
		return fmt.Errorf("storage.SaveDecision: insert decision: %w", err)
	}

	for _, a := range d.Allocations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO allocations (decision_id, game_id, fraction, dollar_amount, edge, confidence)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, a.GameID, a.Fraction, a.DollarAmount, a.Edge, a.Confidence,
		); err != nil {
			return fmt.Errorf("storage.SaveDecision: insert allocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveDecision: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve las decisiones del rango, más recientes primero,
// con sus allocations.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, execute, type, attractor, confidence, reasons
		 FROM decisions
		 WHERE created_at >= ? AND created_at <= ?
		 ORDER BY created_at DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []domain.Decision
	for rows.Next() {
		var d domain.Decision
		var execute int
		var typ, reasons string
		if err := rows.Scan(&d.ID, &d.Timestamp, &execute, &typ, &d.Attractor, &d.Confidence, &reasons); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan decision: %w", err)
		}
		d.Execute = execute != 0
		d.Type = domain.ParseAction(typ)
		if reasons != "" {
			d.Reasons = strings.Split(reasons, reasonSeparator)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetHistory: iterate: %w", err)
	}

	for i := range decisions {
		allocs, err := s.loadAllocations(ctx, decisions[i].ID)
		if err != nil {
			return nil, err
		}
		decisions[i].Allocations = allocs
	}
	return decisions, nil
}

func (s *SQLiteStorage) loadAllocations(ctx context.Context, decisionID string) ([]domain.Allocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, fraction, dollar_amount, edge, confidence
		 FROM allocations WHERE decision_id = ?`,
		decisionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.loadAllocations: %w", err)
	}
	defer rows.Close()

	var allocs []domain.Allocation
	for rows.Next() {
		var a domain.Allocation
		if err := rows.Scan(&a.GameID, &a.Fraction, &a.DollarAmount, &a.Edge, &a.Confidence); err != nil {
			return nil, fmt.Errorf("storage.loadAllocations: scan: %w", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

// Close cierra la conexión.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld borra decisiones fuera de la ventana de retención. Los
// errores no son fatales: el journal degradado sigue siendo usable.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retention)
	s.db.ExecContext(ctx, `DELETE FROM allocations WHERE decision_id IN (SELECT id FROM decisions WHERE created_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM decisions WHERE created_at < ?`, cutoff)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
