package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/geobet/internal/domain"
)

func testDecision() domain.Decision {
	return domain.Decision{
		ID:      "d-1",
		Execute: true,
		Type:    domain.ActionExecute,
		Allocations: []domain.Allocation{
			{GameID: "NYY-BOS", Fraction: 0.04, DollarAmount: 40, Edge: 0.10, Confidence: 0.7},
		},
		Confidence: 0.74,
		Attractor:  "Stable Edge",
		Timestamp:  time.Date(2026, 8, 24, 19, 30, 0, 0, time.UTC),
	}
}

func TestConsole_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	require.NoError(t, c.Notify(context.Background(), testDecision(), nil))

	out := buf.String()
	assert.Contains(t, out, "Stable Edge")
	assert.Contains(t, out, "EXECUTE")
	assert.Contains(t, out, "NYY-BOS")
	assert.Contains(t, out, "$40.00")
}

func TestConsole_CompactShowsFirstReasonWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, false)

	d := testDecision()
	d.Execute = false
	d.Type = domain.ActionWait
	d.Allocations = nil
	d.Reasons = []string{"no valid allocations"}

	require.NoError(t, c.Notify(context.Background(), d, nil))
	assert.Contains(t, buf.String(), "no valid allocations")
}

func TestConsole_FullTable(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf, true)

	events := []domain.Event{{Type: domain.EventHoleDetected, Detail: "opposing_edges: edges disagree"}}
	require.NoError(t, c.Notify(context.Background(), testDecision(), events))

	out := buf.String()
	assert.Contains(t, out, "Game")
	assert.Contains(t, out, "NYY-BOS")
	assert.Contains(t, out, "4.00%")
	assert.Contains(t, out, "hole_detected")
}
