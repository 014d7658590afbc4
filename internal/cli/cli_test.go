package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/statebridge/internal/cli"
	"github.com/aretw0/statebridge/internal/config"
	"github.com/aretw0/statebridge/internal/presentation/tui"
	"github.com/aretw0/statebridge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gameConfig() config.Config {
	cfg := config.Default()
	cfg.System.Name = "game"
	cfg.System.Initial = map[string]any{"score": 0, "isPlaying": false}
	cfg.System.Actions = map[string]map[string]any{
		"addScore":   {"op": "add", "path": "score", "value": 1},
		"togglePlay": {"op": "toggle", "path": "isPlaying"},
	}
	return cfg
}

func startRuntime(t *testing.T, opts cli.Options) *cli.Runtime {
	t.Helper()
	rt, err := cli.NewRuntime(gameConfig(), opts)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, rt.Stop(context.Background()))
	})
	return rt
}

func TestRuntime_DispatchAndState(t *testing.T) {
	rt := startRuntime(t, cli.Options{})
	ctx := context.Background()

	state, err := rt.Dispatch(ctx, "addScore", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, state["score"])

	_, err = rt.Dispatch(ctx, "fly", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	state, err = rt.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, state["score"])
	assert.Equal(t, domain.PhaseActive, rt.System().Phase())
}

func TestRuntime_StartTwice(t *testing.T) {
	rt := startRuntime(t, cli.Options{})
	assert.Error(t, rt.Start(context.Background()))
}

func TestRuntime_StopWithoutStart(t *testing.T) {
	rt, err := cli.NewRuntime(gameConfig(), cli.Options{})
	require.NoError(t, err)
	assert.NoError(t, rt.Stop(context.Background()))
	assert.True(t, rt.Element().Closed())
}

func TestRuntime_StopDestroysSystem(t *testing.T) {
	rt, err := cli.NewRuntime(gameConfig(), cli.Options{})
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	require.NoError(t, rt.Stop(context.Background()))

	assert.Equal(t, domain.PhaseDestroyed, rt.System().Phase())
	_, err = rt.Dispatch(context.Background(), "addScore", nil)
	assert.ErrorIs(t, err, domain.ErrElementClosed)
}

func TestRuntime_Metrics(t *testing.T) {
	rt := startRuntime(t, cli.Options{Registerer: prometheus.NewRegistry()})
	require.NotNil(t, rt.Metrics)

	_, err := rt.Dispatch(context.Background(), "togglePlay", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(rt.Metrics.Dispatches.WithLabelValues("game", "togglePlay", "ok")))
}

func TestNewRuntime_InvalidActions(t *testing.T) {
	cfg := gameConfig()
	cfg.System.Actions["broken"] = map[string]any{"op": "explode", "path": "x"}

	_, err := cli.NewRuntime(cfg, cli.Options{})
	assert.Error(t, err)
}

const script = `
steps:
  - action: togglePlay
    expect:
      isPlaying: true
  - action: addScore
    payload: 10
  - action: addScore
    expect:
      score: 11
`

func TestReplay(t *testing.T) {
	rt := startRuntime(t, cli.Options{})
	s, err := cli.DecodeScript(strings.NewReader(script))
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)

	var out bytes.Buffer
	report, err := cli.Replay(context.Background(), rt, s, cli.ReplayOptions{
		Printer: tui.NewEventPrinter(&out, true),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"togglePlay", "addScore", "addScore"}, report.Dispatched)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 11, report.Final["score"])
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), `addScore 10 => {"isPlaying":true,"score":10}`)
}

func TestReplay_StopsOnFailure(t *testing.T) {
	rt := startRuntime(t, cli.Options{})
	s, err := cli.DecodeScript(strings.NewReader(`
steps:
  - action: addScore
    expect:
      score: 2
  - action: addScore
`))
	require.NoError(t, err)

	report, err := cli.Replay(context.Background(), rt, s, cli.ReplayOptions{})
	assert.ErrorIs(t, err, cli.ErrExpectation)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"addScore"}, report.Dispatched)
	assert.Equal(t, 1, report.Final["score"])
}

func TestReplay_KeepGoing(t *testing.T) {
	rt := startRuntime(t, cli.Options{})
	s := cli.Script{Steps: []cli.Step{
		{Action: "jump"},
		{Action: "addScore"},
	}}

	report, err := cli.Replay(context.Background(), rt, s, cli.ReplayOptions{KeepGoing: true})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"addScore"}, report.Dispatched)
}

func TestDecodeScript_Errors(t *testing.T) {
	_, err := cli.DecodeScript(strings.NewReader("steps:\n  - payload: 1\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	_, err = cli.DecodeScript(strings.NewReader("steps:\n  - action: a\n    unknown: 1\n"))
	assert.Error(t, err)

	s, err := cli.DecodeScript(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s.Steps)
}

func TestReplay_GameExample(t *testing.T) {
	cfg, err := config.Load("../../examples/game/statebridge.yaml")
	require.NoError(t, err)
	script, err := cli.LoadScript("../../examples/game/script.yaml")
	require.NoError(t, err)

	rt, err := cli.NewRuntime(cfg, cli.Options{})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	defer rt.Stop(ctx)

	report, err := cli.Replay(ctx, rt, script, cli.ReplayOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Dispatched, len(script.Steps))
	assert.Equal(t, 11, report.Final["score"])
	assert.Equal(t, []any{"coin"}, report.Final["collected"])
}
