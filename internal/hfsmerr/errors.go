// Package hfsmerr defines the error kinds surfaced by the statechart engine,
// shared by every internal package so construction-time and runtime failures
// can be distinguished with errors.As/errors.Is at the public surface.
package hfsmerr

import "fmt"

// Sentinel kinds matched with errors.Is. Detail is carried by the wrapping
// error types below, not by distinct sentinel values per occurrence.
var (
	// ErrUnknownState is returned when the declared initial state does not
	// resolve to a registered StateNode. An unregistered transition target
	// is not reported with it (it becomes a CodeUnknownTarget issue of an
	// InvalidStateMachineError), and an IsIn query for an unknown kind
	// reports false without any error.
	ErrUnknownState = fmt.Errorf("hfsmx: unknown state")

	// ErrInvalidTransition is returned when an event has no matching
	// trigger anywhere from the active leaf up to the virtual root.
	ErrInvalidTransition = fmt.Errorf("hfsmx: invalid transition")

	// ErrNullChoiceMustBeLast is returned at registration time when a
	// guardless transition is added before a guarded one, or a second
	// guardless transition is added, for the same (node, trigger) pair.
	ErrNullChoiceMustBeLast = fmt.Errorf("hfsmx: guardless transition must be last")

	// ErrInvalidStateMachine is returned when the analyzer rejects a
	// constructed graph.
	ErrInvalidStateMachine = fmt.Errorf("hfsmx: invalid state machine")
)

// UnknownStateError names the offending kind.
type UnknownStateError struct {
	Kind string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("hfsmx: unknown state %q", e.Kind)
}

func (e *UnknownStateError) Unwrap() error { return ErrUnknownState }

// InvalidTransitionError names the active leaf and the event that had no
// matching trigger anywhere up to the virtual root.
type InvalidTransitionError struct {
	From  string
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("hfsmx: no transition for event %q from state %q", e.Event, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NullChoiceError names the node and trigger whose guard ordering was
// violated.
type NullChoiceError struct {
	State   string
	Trigger string
}

func (e *NullChoiceError) Error() string {
	return fmt.Sprintf("hfsmx: state %q event %q: guardless transition must be the last registered for a trigger", e.State, e.Trigger)
}

func (e *NullChoiceError) Unwrap() error { return ErrNullChoiceMustBeLast }

// AnalysisIssueCode enumerates the analyzer's detail kinds.
type AnalysisIssueCode string

const (
	CodeDuplicateState     AnalysisIssueCode = "DUPLICATE_STATE"
	CodeAbstractTarget     AnalysisIssueCode = "ABSTRACT_TARGET_STATE"
	CodeUnreachableState   AnalysisIssueCode = "UNREACHABLE_STATE"
	CodeInitialNotLeaf     AnalysisIssueCode = "INITIAL_STATE_NOT_LEAF"
	CodeUnknownTarget      AnalysisIssueCode = "UNKNOWN_TARGET"
	CodeForkRegionConflict AnalysisIssueCode = "FORK_REGION_CONFLICT"
	CodeJoinCoverage       AnalysisIssueCode = "JOIN_SOURCE_COVERAGE"
)

// AnalysisIssue is one finding from the static analyzer, accumulated into an
// InvalidStateMachineError so every problem with a graph is reported at once.
type AnalysisIssue struct {
	Code    AnalysisIssueCode
	Message string
	State   string
}

func (i AnalysisIssue) String() string {
	if i.State != "" {
		return fmt.Sprintf("[%s] %s (state %q)", i.Code, i.Message, i.State)
	}
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}

// InvalidStateMachineError aggregates every issue the analyzer found.
type InvalidStateMachineError struct {
	Issues []AnalysisIssue
}

func (e *InvalidStateMachineError) Error() string {
	if len(e.Issues) == 1 {
		return "hfsmx: invalid state machine: " + e.Issues[0].String()
	}
	msg := fmt.Sprintf("hfsmx: invalid state machine: %d issues found:", len(e.Issues))
	for _, issue := range e.Issues {
		msg += "\n  - " + issue.String()
	}
	return msg
}

func (e *InvalidStateMachineError) Unwrap() error { return ErrInvalidStateMachine }

func (e *InvalidStateMachineError) HasIssues() bool { return len(e.Issues) > 0 }

func (e *InvalidStateMachineError) Add(code AnalysisIssueCode, state, format string, args ...any) {
	e.Issues = append(e.Issues, AnalysisIssue{
		Code:    code,
		State:   state,
		Message: fmt.Sprintf(format, args...),
	})
}
