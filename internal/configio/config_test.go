package configio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/primitives"
)

const mediaYAML = `
id: media
initial: Idle
states:
  - kind: Idle
    on:
      - event: Start
        targets: [AudioOn, VideoOn]
        effect: bootAV
        label: start av
  - kind: Running
    concurrent: true
    children:
      - kind: Audio
        children:
          - kind: AudioOn
            enter: trackEnter
            on:
              - event: MuteAudio
                target: AudioOff
                guard: allowMute
          - kind: AudioOff
            on:
              - event: Stop
                target: Idle
                join: true
      - kind: Video
        children:
          - kind: VideoOn
            on:
              - event: MuteVideo
                target: VideoOff
          - kind: VideoOff
            on:
              - event: Stop
                target: Idle
                join: true
`

func mediaBindings() Bindings {
	return Bindings{
		Guards:    map[string]graph.Guard{"allowMute": func(e primitives.Event) bool { return true }},
		Effects:   map[string]graph.Effect{"bootAV": func(e primitives.Event) {}},
		Callbacks: map[string]graph.Callback{"trackEnter": func(other primitives.StateKind, e primitives.Event) {}},
	}
}

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML([]byte(mediaYAML))
	require.NoError(t, err)

	assert.Equal(t, "media", cfg.ID)
	assert.Equal(t, "Idle", cfg.Initial)
	require.Len(t, cfg.States, 2)
	assert.True(t, cfg.States[1].Concurrent)
	require.Len(t, cfg.States[0].On, 1)
	assert.Equal(t, []string{"AudioOn", "VideoOn"}, cfg.States[0].On[0].Targets)
}

func TestLoadYAML_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing id":      "states: [{kind: A}]",
		"no states":       "id: empty",
		"missing event":   "id: x\nstates: [{kind: A, on: [{target: B}]}]",
		"missing target":  "id: x\nstates: [{kind: A, on: [{event: Go}]}]",
		"one fork target": "id: x\nstates: [{kind: A, on: [{event: Go, targets: [B]}]}]",
		"join with fan":   "id: x\nstates: [{kind: A, on: [{event: Go, targets: [B, C], join: true}]}]",
		"lone concurrent": "id: x\nstates: [{kind: A, concurrent: true, children: [{kind: B}]}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCompile(t *testing.T) {
	cfg, err := LoadYAML([]byte(mediaYAML))
	require.NoError(t, err)

	g, err := Compile(cfg, mediaBindings())
	require.NoError(t, err)

	assert.Equal(t, primitives.StateKind("Idle"), g.InitialLeaf().Kind)

	running, ok := g.Lookup("Running")
	require.True(t, ok)
	assert.Equal(t, graph.ModeConcurrent, running.ChildrenMode)

	audioOn, ok := g.Lookup("AudioOn")
	require.True(t, ok)
	assert.NotNil(t, audioOn.OnEnter)
	def := audioOn.Transitions["MuteAudio"][0]
	assert.NotNil(t, def.Guard)

	idle, _ := g.Lookup("Idle")
	fork := idle.Transitions["Start"][0]
	assert.Equal(t, graph.VariantFork, fork.Variant)
	assert.Equal(t, "start av", fork.Label)

	audioOff, _ := g.Lookup("AudioOff")
	join := audioOff.Transitions["Stop"][0]
	assert.Equal(t, graph.VariantJoin, join.Variant)
	assert.Len(t, join.Sources, 2)
}

func TestCompile_UnboundNames(t *testing.T) {
	cfg, err := LoadYAML([]byte(mediaYAML))
	require.NoError(t, err)

	b := mediaBindings()
	b.Guards = nil
	_, err = Compile(cfg, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound guard")

	b = mediaBindings()
	delete(b.Effects, "bootAV")
	_, err = Compile(cfg, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound effect")

	b = mediaBindings()
	b.Callbacks = map[string]graph.Callback{}
	_, err = Compile(cfg, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound enter callback")
}

func TestDescribeRoundTrip(t *testing.T) {
	cfg, err := LoadYAML([]byte(mediaYAML))
	require.NoError(t, err)

	g, err := Compile(cfg, mediaBindings())
	require.NoError(t, err)

	back := Describe("media", g)
	assert.Equal(t, "media", back.ID)
	assert.Equal(t, "Idle", back.Initial)

	data, err := back.DumpYAML()
	require.NoError(t, err)

	again, err := LoadYAML(data)
	require.NoError(t, err)

	// The structural shape survives the round trip; guard/effect names do
	// not (functions have no names to recover).
	g2, err := Compile(again, Bindings{})
	require.NoError(t, err)
	running, ok := g2.Lookup("Running")
	require.True(t, ok)
	assert.Equal(t, graph.ModeConcurrent, running.ChildrenMode)
	audioOff, _ := g2.Lookup("AudioOff")
	assert.Equal(t, graph.VariantJoin, audioOff.Transitions["Stop"][0].Variant)
}
