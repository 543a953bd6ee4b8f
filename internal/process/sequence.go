// Package process defines the ordered sequence of authoring steps and the
// rules for step identifiers.
package process

import (
	"fmt"
	"regexp"
	"slices"
)

// stepIDPattern matches identifiers like "03-templates".
var stepIDPattern = regexp.MustCompile(`^[0-9]{2}-[a-z-]+$`)

// ReferenceSteps is the default seven-step authoring sequence.
var ReferenceSteps = []string{
	"00-requirements",
	"01-classification",
	"02-structure",
	"03-templates",
	"04-framework",
	"05-validation",
	"06-finalize",
}

// ValidStepID reports whether id has the form "NN-lowercase-words".
func ValidStepID(id string) bool {
	return stepIDPattern.MatchString(id)
}

// StepIDPattern returns the regular expression source for step identifiers.
func StepIDPattern() string {
	return stepIDPattern.String()
}

// Sequence is an explicit, ordered list of step identifiers. Order comes
// from the list itself, never from the numeric prefix.
type Sequence struct {
	steps []string
	index map[string]int
}

// NewSequence builds a Sequence, rejecting empty lists, malformed ids and
// duplicates.
func NewSequence(steps []string) (*Sequence, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("step sequence is empty")
	}
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		if !ValidStepID(s) {
			return nil, fmt.Errorf("invalid step id %q: must match %s", s, stepIDPattern)
		}
		if _, dup := index[s]; dup {
			return nil, fmt.Errorf("duplicate step id %q", s)
		}
		index[s] = i
	}
	return &Sequence{steps: slices.Clone(steps), index: index}, nil
}

// Reference returns the reference sequence.
func Reference() *Sequence {
	seq, err := NewSequence(ReferenceSteps)
	if err != nil {
		panic(err)
	}
	return seq
}

// Steps returns a copy of the ordered step list.
func (s *Sequence) Steps() []string {
	return slices.Clone(s.steps)
}

// Len returns the number of steps.
func (s *Sequence) Len() int {
	return len(s.steps)
}

// First returns the initial step.
func (s *Sequence) First() string {
	return s.steps[0]
}

// Last returns the terminal step.
func (s *Sequence) Last() string {
	return s.steps[len(s.steps)-1]
}

// Contains reports whether step is part of the sequence.
func (s *Sequence) Contains(step string) bool {
	_, ok := s.index[step]
	return ok
}

// Index returns the position of step, or -1 when it is not in the sequence.
func (s *Sequence) Index(step string) int {
	if i, ok := s.index[step]; ok {
		return i
	}
	return -1
}

// Next returns the successor of step. The boolean is false when step is the
// last element or is not part of the sequence.
func (s *Sequence) Next(step string) (string, bool) {
	i, ok := s.index[step]
	if !ok || i == len(s.steps)-1 {
		return "", false
	}
	return s.steps[i+1], true
}

// IsTerminal reports whether step is the last element of the sequence.
func (s *Sequence) IsTerminal(step string) bool {
	return step == s.Last()
}
