package feed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTicks = `{"opportunities":[{"game_id":"NYY-BOS","model_probability":0.6,"implied_probability":0.5,"confidence":0.7,"american_odds":100,"bet_type":"moneyline"}],"contexts":{"NYY-BOS":{"minutes_to_close":30}}}
{"opportunities":[{"game_id":"NYY-BOS","model_probability":0.58,"implied_probability":0.5,"confidence":0.7,"american_odds":100,"bet_type":"moneyline"},{"game_id":"bad","model_probability":1.7,"implied_probability":0.5,"confidence":0.5,"american_odds":100,"bet_type":"moneyline"}],"contexts":{}}
`

func writeTicks(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReplay_ReadsTicksInOrder(t *testing.T) {
	r, err := NewReplay(writeTicks(t, sampleTicks), discardLogger())
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()

	first, err := r.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first.Opportunities, 1)
	assert.Equal(t, "NYY-BOS", first.Opportunities[0].GameID)
	assert.Equal(t, 30.0, first.Contexts["NYY-BOS"].MinutesToClose)

	second, err := r.Next(ctx)
	require.NoError(t, err)
	// la oportunidad con probabilidad 1.7 se descarta, no se corrige
	require.Len(t, second.Opportunities, 1)
	assert.InDelta(t, 0.58, second.Opportunities[0].ModelProbability, 1e-9)

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplay_MalformedLineFails(t *testing.T) {
	r, err := NewReplay(writeTicks(t, "{not json}\n"), discardLogger())
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next(context.Background())
	assert.Error(t, err)
}

func TestReplay_CancelledContext(t *testing.T) {
	r, err := NewReplay(writeTicks(t, sampleTicks), discardLogger())
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplay_MissingFile(t *testing.T) {
	_, err := NewReplay(filepath.Join(t.TempDir(), "missing.jsonl"), discardLogger())
	assert.Error(t, err)
}
