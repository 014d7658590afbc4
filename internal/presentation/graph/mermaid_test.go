package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/statebridge/internal/presentation/graph"
	"github.com/aretw0/statebridge/pkg/reducers"
	"github.com/stretchr/testify/assert"
)

var gameSpecs = map[string]reducers.ActionSpec{
	"addScore":   {Op: reducers.OpAdd, Path: "score", Value: 1},
	"resetScore": {Op: reducers.OpSet, Path: "score", Value: 0},
	"movePlayer": {Op: reducers.OpMerge, Path: "player.position"},
	"clear":      {Op: reducers.OpDelete, Path: "log"},
	"restore":    {Op: reducers.OpMerge},
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "System Node Shape",
			contains: []string{"sys_game((\"game\"))"},
		},
		{
			name:     "Action Node Shape",
			contains: []string{"action_addScore[/\"addScore\"/]"},
		},
		{
			name: "Path Nodes Are Sanitized",
			contains: []string{
				"path_player_position[\"player.position\"]",
				"sys_game --- path_player_position",
			},
		},
		{
			name: "Operation Labels",
			contains: []string{
				"action_addScore -- \"add\" --> path_score",
				"action_clear -. \"delete\" .-> path_log",
				"action_restore -- \"merge\" --> sys_game",
			},
		},
	}

	out := graph.GenerateMermaid("game", gameSpecs, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestGenerateMermaid_SharedPathDeclaredOnce(t *testing.T) {
	out := graph.GenerateMermaid("game", gameSpecs, nil)
	assert.Equal(t, 1, strings.Count(out, "path_score[\"score\"]"))
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid("game", gameSpecs, &graph.Overlay{
		Dispatched: []string{"addScore", "addScore", "ghost", "clear"},
		Last:       "clear",
	})

	assert.Equal(t, 1, strings.Count(out, "class action_addScore dispatched;"))
	assert.Contains(t, out, "class action_clear dispatched;")
	assert.Contains(t, out, "class action_clear last;")
	assert.NotContains(t, out, "ghost")
}
