package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnevik/hfsmx/internal/builder"
	"github.com/arnevik/hfsmx/internal/engine"
	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/mind"
	"github.com/arnevik/hfsmx/internal/primitives"
)

func mediaGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := builder.New()
	b.Initial("Idle")
	b.State("Idle").OnFork("Start", []primitives.StateKind{"AudioOn", "VideoOn"}, builder.WithLabel("start av"))
	running := b.State("Running")
	audio := running.Concurrent("Audio")
	audio.Nested("AudioOn").On("MuteAudio", "AudioOff")
	audio.Nested("AudioOff").OnJoin("Stop", "Idle")
	video := running.Concurrent("Video")
	video.Nested("VideoOn").On("MuteVideo", "VideoOff")
	video.Nested("VideoOff").OnJoin("Stop", "Idle")

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func activeMedia() mind.StateOfMind {
	return mind.New(
		mind.StatePath{"Running", "Audio", "AudioOn"},
		mind.StatePath{"Running", "Video", "VideoOn"},
	)
}

func TestRender_DOT(t *testing.T) {
	out, err := NewRenderer().Render(mediaGraph(t), activeMedia(), engine.FormatDOT)
	require.NoError(t, err)

	assert.Contains(t, out, "digraph statechart {")
	assert.Contains(t, out, `subgraph "cluster_Running"`)
	assert.Contains(t, out, "(concurrent)")
	// Active leaves are highlighted; inactive ones are not.
	assert.Contains(t, out, `"AudioOn" [label="AudioOn" style=filled fillcolor=lightgreen];`)
	assert.Contains(t, out, `"AudioOff" [label="AudioOff"];`)
	// The fork renders one edge per target.
	assert.Contains(t, out, `"Idle" -> "AudioOn"`)
	assert.Contains(t, out, `"Idle" -> "VideoOn"`)
	// The join renders one edge per source.
	assert.Contains(t, out, `"AudioOff" -> "Idle"`)
	assert.Contains(t, out, `"VideoOff" -> "Idle"`)
}

func TestRender_Mermaid(t *testing.T) {
	out, err := NewRenderer().Render(mediaGraph(t), activeMedia(), engine.FormatMermaid)
	require.NoError(t, err)

	assert.Contains(t, out, "stateDiagram-v2")
	assert.Contains(t, out, "[*] --> Idle")
	assert.Contains(t, out, "state Running {")
	// Concurrent regions separate with --.
	assert.Contains(t, out, "--\n")
	assert.Contains(t, out, "Idle --> AudioOn : Start / start av")
	assert.Contains(t, out, "AudioOn --> AudioOff : MuteAudio")
}

func TestRender_SMCat(t *testing.T) {
	out, err := NewRenderer().Render(mediaGraph(t), activeMedia(), engine.FormatSMCat)
	require.NoError(t, err)

	assert.Contains(t, out, "Running {")
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "AudioOn => AudioOff: MuteAudio;")
	assert.Contains(t, out, "AudioOff => Idle: Stop;")
}

func TestRender_UnsupportedFormat(t *testing.T) {
	_, err := NewRenderer().Render(mediaGraph(t), activeMedia(), engine.ExportFormat("png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
