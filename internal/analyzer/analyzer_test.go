package analyzer

import (
	"errors"
	"testing"

	"github.com/arnevik/hfsmx/internal/graph"
	"github.com/arnevik/hfsmx/internal/hfsmerr"
	"github.com/arnevik/hfsmx/internal/primitives"
)

func mustGraph(t *testing.T, root *graph.StateNode, index map[primitives.StateKind]*graph.StateNode, initial primitives.StateKind) *graph.Graph {
	t.Helper()
	g, err := graph.New(root, index, initial, nil)
	if err != nil {
		t.Fatalf("graph.New() error = %v", err)
	}
	return g
}

func issueCodes(t *testing.T, err error) []hfsmerr.AnalysisIssueCode {
	t.Helper()
	var invalid *hfsmerr.InvalidStateMachineError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *hfsmerr.InvalidStateMachineError, got %T (%v)", err, err)
	}
	codes := make([]hfsmerr.AnalysisIssueCode, len(invalid.Issues))
	for i, issue := range invalid.Issues {
		codes[i] = issue.Code
	}
	return codes
}

func containsCode(codes []hfsmerr.AnalysisIssueCode, want hfsmerr.AnalysisIssueCode) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestAnalyze_LinearReachableGraph(t *testing.T) {
	root := graph.NewRoot()
	index := map[primitives.StateKind]*graph.StateNode{}

	solid := graph.NewNode("Solid")
	solid.Parent = root
	root.Children.Set("Solid", solid)
	index["Solid"] = solid

	liquid := graph.NewNode("Liquid")
	liquid.Parent = root
	root.Children.Set("Liquid", liquid)
	index["Liquid"] = liquid

	_ = solid.AddTransition("Melt", &graph.TransitionDefinition{
		Variant: graph.VariantPlain,
		Trigger: "Melt",
		Source:  solid,
		Targets: []*graph.StateNode{liquid},
	})

	g := mustGraph(t, root, index, "Solid")
	if err := Analyze(g); err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
}

func TestAnalyze_UnreachableState(t *testing.T) {
	root := graph.NewRoot()
	index := map[primitives.StateKind]*graph.StateNode{}

	solid := graph.NewNode("Solid")
	solid.Parent = root
	root.Children.Set("Solid", solid)
	index["Solid"] = solid

	plasma := graph.NewNode("Plasma")
	plasma.Parent = root
	root.Children.Set("Plasma", plasma)
	index["Plasma"] = plasma

	g := mustGraph(t, root, index, "Solid")
	err := Analyze(g)
	if err == nil {
		t.Fatal("expected an error: Plasma is never reached")
	}
	codes := issueCodes(t, err)
	if !containsCode(codes, hfsmerr.CodeUnreachableState) {
		t.Fatalf("codes = %v, want CodeUnreachableState", codes)
	}
}

func TestAnalyze_InitialMustBeLeaf(t *testing.T) {
	root := graph.NewRoot()
	index := map[primitives.StateKind]*graph.StateNode{}

	compound := graph.NewNode("Solid")
	compound.Parent = root
	compound.ChildrenMode = graph.ModeNested
	root.Children.Set("Solid", compound)
	index["Solid"] = compound

	child := graph.NewNode("Soft")
	child.Parent = compound
	compound.Children.Set("Soft", child)
	index["Soft"] = child

	if _, err := graph.New(root, index, "Solid", nil); err == nil {
		t.Fatal("graph.New should already reject an abstract initial state")
	}
}

func buildConcurrentGraph(t *testing.T) (g *graph.Graph, running, audio, audioOn, audioOff, video, videoOn, videoOff *graph.StateNode) {
	t.Helper()
	root := graph.NewRoot()
	index := map[primitives.StateKind]*graph.StateNode{}

	idle := graph.NewNode("Idle")
	idle.Parent = root
	root.Children.Set("Idle", idle)
	index["Idle"] = idle

	running = graph.NewNode("Running")
	running.Parent = root
	running.ChildrenMode = graph.ModeConcurrent
	root.Children.Set("Running", running)
	index["Running"] = running

	audio = graph.NewNode("Audio")
	audio.Parent = running
	audio.ChildrenMode = graph.ModeNested
	running.Children.Set("Audio", audio)
	index["Audio"] = audio

	audioOn = graph.NewNode("AudioOn")
	audioOn.Parent = audio
	audio.Children.Set("AudioOn", audioOn)
	index["AudioOn"] = audioOn

	audioOff = graph.NewNode("AudioOff")
	audioOff.Parent = audio
	audio.Children.Set("AudioOff", audioOff)
	index["AudioOff"] = audioOff

	video = graph.NewNode("Video")
	video.Parent = running
	video.ChildrenMode = graph.ModeNested
	running.Children.Set("Video", video)
	index["Video"] = video

	videoOn = graph.NewNode("VideoOn")
	videoOn.Parent = video
	video.Children.Set("VideoOn", videoOn)
	index["VideoOn"] = videoOn

	videoOff = graph.NewNode("VideoOff")
	videoOff.Parent = video
	video.Children.Set("VideoOff", videoOff)
	index["VideoOff"] = videoOff

	_ = idle.AddTransition("Start", &graph.TransitionDefinition{
		Variant: graph.VariantFork,
		Trigger: "Start",
		Source:  idle,
		Targets: []*graph.StateNode{audioOff, videoOff},
	})

	g = mustGraph(t, root, index, "Idle")
	return
}

func TestAnalyze_ValidForkAndJoin(t *testing.T) {
	g, running, _, audioOn, audioOff, _, videoOn, videoOff := buildConcurrentGraph(t)

	_ = audioOff.AddTransition("ToggleAudio", &graph.TransitionDefinition{
		Variant: graph.VariantPlain,
		Trigger: "ToggleAudio",
		Source:  audioOff,
		Targets: []*graph.StateNode{audioOn},
	})
	_ = videoOff.AddTransition("ToggleVideo", &graph.TransitionDefinition{
		Variant: graph.VariantPlain,
		Trigger: "ToggleVideo",
		Source:  videoOff,
		Targets: []*graph.StateNode{videoOn},
	})

	_ = running.AddTransition("Stop", &graph.TransitionDefinition{
		Variant: graph.VariantJoin,
		Trigger: "Stop",
		Sources: []*graph.StateNode{audioOn, videoOn},
		Targets: []*graph.StateNode{mustLookup(g, t, "Idle")},
	})

	if err := Analyze(g); err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
}

func TestAnalyze_JoinMissingCoverage(t *testing.T) {
	g, running, _, _, _, _, videoOn, _ := buildConcurrentGraph(t)

	_ = running.AddTransition("Stop", &graph.TransitionDefinition{
		Variant: graph.VariantJoin,
		Trigger: "Stop",
		Sources: []*graph.StateNode{videoOn},
		Targets: []*graph.StateNode{mustLookup(g, t, "Idle")},
	})

	err := Analyze(g)
	if err == nil {
		t.Fatal("expected an error: join only covers one of two concurrent regions")
	}
	codes := issueCodes(t, err)
	if !containsCode(codes, hfsmerr.CodeJoinCoverage) {
		t.Fatalf("codes = %v, want CodeJoinCoverage", codes)
	}
}

func TestAnalyze_ForkRegionConflict(t *testing.T) {
	root := graph.NewRoot()
	index := map[primitives.StateKind]*graph.StateNode{}

	idle := graph.NewNode("Idle")
	idle.Parent = root
	root.Children.Set("Idle", idle)
	index["Idle"] = idle

	running := graph.NewNode("Running")
	running.Parent = root
	running.ChildrenMode = graph.ModeConcurrent
	root.Children.Set("Running", running)
	index["Running"] = running

	audio := graph.NewNode("Audio")
	audio.Parent = running
	running.Children.Set("Audio", audio)
	index["Audio"] = audio

	audioA := graph.NewNode("AudioA")
	audioA.Parent = audio
	audio.Children.Set("AudioA", audioA)
	index["AudioA"] = audioA

	audioB := graph.NewNode("AudioB")
	audioB.Parent = audio
	audio.Children.Set("AudioB", audioB)
	index["AudioB"] = audioB

	_ = idle.AddTransition("Start", &graph.TransitionDefinition{
		Variant: graph.VariantFork,
		Trigger: "Start",
		Source:  idle,
		Targets: []*graph.StateNode{audioA, audioB},
	})

	g := mustGraph(t, root, index, "Idle")
	err := Analyze(g)
	if err == nil {
		t.Fatal("expected an error: both fork targets land in the Audio region")
	}
	codes := issueCodes(t, err)
	if !containsCode(codes, hfsmerr.CodeForkRegionConflict) {
		t.Fatalf("codes = %v, want CodeForkRegionConflict", codes)
	}
}

func mustLookup(g *graph.Graph, t *testing.T, kind primitives.StateKind) *graph.StateNode {
	t.Helper()
	n, ok := g.Lookup(kind)
	if !ok {
		t.Fatalf("expected %q to be registered", kind)
	}
	return n
}
