// Package configio defines the serializable authoring form of a state
// graph: a MachineConfig that can be loaded from or dumped to YAML, then
// compiled into a frozen graph. Guards, effects, and entry/exit callbacks
// are referenced by name and resolved against a Bindings table at compile
// time, since functions do not serialize.
package configio

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MachineConfig is the top-level declarative form of one machine.
type MachineConfig struct {
	ID      string        `yaml:"id" json:"id"`
	Initial string        `yaml:"initial,omitempty" json:"initial,omitempty"`
	States  []StateConfig `yaml:"states" json:"states"`
}

// StateConfig declares one state and its subtree.
type StateConfig struct {
	Kind       string             `yaml:"kind" json:"kind"`
	Concurrent bool               `yaml:"concurrent,omitempty" json:"concurrent,omitempty"`
	Children   []StateConfig      `yaml:"children,omitempty" json:"children,omitempty"`
	On         []TransitionConfig `yaml:"on,omitempty" json:"on,omitempty"`
	Enter      string             `yaml:"enter,omitempty" json:"enter,omitempty"`
	Exit       string             `yaml:"exit,omitempty" json:"exit,omitempty"`
}

// TransitionConfig declares one outgoing transition. Target names a plain
// transition (or the join's destination when Join is set); Targets names a
// fork's fan-out.
type TransitionConfig struct {
	Event   string   `yaml:"event" json:"event"`
	Target  string   `yaml:"target,omitempty" json:"target,omitempty"`
	Targets []string `yaml:"targets,omitempty" json:"targets,omitempty"`
	Join    bool     `yaml:"join,omitempty" json:"join,omitempty"`
	Guard   string   `yaml:"guard,omitempty" json:"guard,omitempty"`
	Effect  string   `yaml:"effect,omitempty" json:"effect,omitempty"`
	Label   string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// LoadYAML parses and validates a MachineConfig document.
func LoadYAML(data []byte) (*MachineConfig, error) {
	var cfg MachineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("configio: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DumpYAML serializes the config.
func (c *MachineConfig) DumpYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("configio: dump: %w", err)
	}
	return data, nil
}

// Validate checks required fields and shape. Cross-state checks run on
// the compiled graph: target existence in the builder, reachability and
// fork regions in the analyzer.
func (c *MachineConfig) Validate() error {
	if c.ID == "" {
		return errors.New("configio: machine id is required")
	}
	if len(c.States) == 0 {
		return errors.New("configio: at least one state is required")
	}
	for i := range c.States {
		if err := c.States[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *StateConfig) validate() error {
	if s.Kind == "" {
		return errors.New("configio: state kind is required")
	}
	if s.Concurrent && len(s.Children) < 2 {
		return fmt.Errorf("configio: concurrent state %q needs at least two children", s.Kind)
	}
	for i := range s.On {
		if err := s.On[i].validate(s.Kind); err != nil {
			return err
		}
	}
	for i := range s.Children {
		if err := s.Children[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TransitionConfig) validate(state string) error {
	if t.Event == "" {
		return fmt.Errorf("configio: state %q: transition event is required", state)
	}
	switch {
	case len(t.Targets) > 0:
		if t.Target != "" {
			return fmt.Errorf("configio: state %q event %q: target and targets are mutually exclusive", state, t.Event)
		}
		if t.Join {
			return fmt.Errorf("configio: state %q event %q: a join has a single target", state, t.Event)
		}
		if len(t.Targets) < 2 {
			return fmt.Errorf("configio: state %q event %q: a fork needs at least two targets", state, t.Event)
		}
	case t.Target == "":
		return fmt.Errorf("configio: state %q event %q: target is required", state, t.Event)
	}
	return nil
}
