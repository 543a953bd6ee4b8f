// Package state persists and recovers the session-state record that tracks
// an author's progress through the process steps.
//
// The record lives at a fixed workspace-relative path and is the single
// source of truth for resumption. Writers always re-read it before mutating.
//
// Concurrency: the store performs read-modify-write without mutual
// exclusion. Concurrent transitions against one workspace can race unless
// the opt-in advisory lock ([AcquireLock]) is used by every writer.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
)

// DefaultFileName is the conventional name of the state file.
const DefaultFileName = "current-process.json"

// TimestampLayout is the format used for started_at and updated_at.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Field names of the on-disk record.
const (
	FieldSessionID      = "session_id"
	FieldCurrentNode    = "current_node"
	FieldCompletedNodes = "completed_nodes"
	FieldStartedAt      = "started_at"
	FieldUpdatedAt      = "updated_at"
	FieldNodeOutputs    = "node_outputs"
	FieldSkillName      = "skill_name"
	FieldSkillType      = "skill_type"
)

// RequiredFields lists the fields every record must carry, in check order.
var RequiredFields = []string{FieldSessionID, FieldCurrentNode, FieldStartedAt, FieldCompletedNodes}

// SessionState is the persisted progress record. Fields the tool does not
// know about are kept in Extra and written back unchanged. A decoded record
// remembers its key order and raw values, so re-encoding it changes only the
// fields that were modified.
type SessionState struct {
	SessionID      string            `json:"session_id"`
	CurrentNode    string            `json:"current_node"`
	CompletedNodes []string          `json:"completed_nodes"`
	StartedAt      string            `json:"started_at"`
	UpdatedAt      string            `json:"updated_at"`
	NodeOutputs    map[string]string `json:"node_outputs"`
	SkillName      string            `json:"skill_name"`
	SkillType      string            `json:"skill_type"`

	Extra map[string]json.RawMessage `json:"-"`

	// keys is the top-level key order as decoded; raw holds each decoded value.
	keys []string
	raw  map[string]json.RawMessage
}

// stateAlias drops the custom (un)marshalers.
type stateAlias SessionState

var knownFields = []string{
	FieldSessionID, FieldCurrentNode, FieldCompletedNodes, FieldStartedAt,
	FieldUpdatedAt, FieldNodeOutputs, FieldSkillName, FieldSkillType,
}

// New returns a fresh record positioned at firstStep.
func New(sessionID, firstStep string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:      sessionID,
		CurrentNode:    firstStep,
		CompletedNodes: []string{},
		StartedAt:      FormatTime(now),
		NodeOutputs:    map[string]string{},
	}
}

// FormatTime renders t in the record's timestamp format (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// UnmarshalJSON decodes known fields and retains the rest in Extra.
func (s *SessionState) UnmarshalJSON(data []byte) error {
	var a stateAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}

	a.keys = keys
	a.raw = raw
	a.Extra = nil
	for k, v := range raw {
		if !slices.Contains(knownFields, k) {
			if a.Extra == nil {
				a.Extra = map[string]json.RawMessage{}
			}
			a.Extra[k] = v
		}
	}
	*s = SessionState(a)
	return nil
}

// MarshalJSON writes decoded keys in their original order, then any known
// fields that were not in the input, then new Extra keys sorted by name.
// Optional fields absent from the input are only written when set.
func (s SessionState) MarshalJSON() ([]byte, error) {
	values := s.fieldValues()

	var buf bytes.Buffer
	buf.WriteByte('{')
	written := make(map[string]bool, len(values)+len(s.Extra))
	emit := func(key string) error {
		if written[key] {
			return nil
		}
		var val json.RawMessage
		if v, ok := values[key]; ok {
			enc, err := json.Marshal(v)
			if err != nil {
				return err
			}
			val = s.unchanged(key, enc)
		} else if extra, ok := s.Extra[key]; ok {
			val = extra
		} else {
			return nil
		}
		name, err := json.Marshal(key)
		if err != nil {
			return err
		}
		if len(written) > 0 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
		written[key] = true
		return nil
	}

	for _, group := range [][]string{s.keys, knownFields, slices.Sorted(maps.Keys(s.Extra))} {
		for _, k := range group {
			if err := emit(k); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// fieldValues returns the known fields to write, keyed by field name.
func (s SessionState) fieldValues() map[string]any {
	completed := s.CompletedNodes
	if completed == nil {
		completed = []string{}
	}
	values := map[string]any{
		FieldSessionID:      s.SessionID,
		FieldCurrentNode:    s.CurrentNode,
		FieldCompletedNodes: completed,
		FieldStartedAt:      s.StartedAt,
	}
	optional := map[string]struct {
		value any
		set   bool
	}{
		FieldUpdatedAt:   {s.UpdatedAt, s.UpdatedAt != ""},
		FieldNodeOutputs: {s.NodeOutputs, s.NodeOutputs != nil},
		FieldSkillName:   {s.SkillName, s.SkillName != ""},
		FieldSkillType:   {s.SkillType, s.SkillType != ""},
	}
	for k, o := range optional {
		if o.set || s.decoded(k) {
			values[k] = o.value
		}
	}
	return values
}

func (s SessionState) decoded(key string) bool {
	_, ok := s.raw[key]
	return ok
}

// unchanged returns the decoded bytes for key when enc carries the same
// value, keeping nested key order as it was read.
func (s SessionState) unchanged(key string, enc []byte) json.RawMessage {
	orig, ok := s.raw[key]
	if !ok {
		return enc
	}
	var a, b any
	if json.Unmarshal(orig, &a) != nil || json.Unmarshal(enc, &b) != nil || !reflect.DeepEqual(a, b) {
		return enc
	}
	return orig
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// HasCompleted reports whether step is already in CompletedNodes.
func (s *SessionState) HasCompleted(step string) bool {
	return slices.Contains(s.CompletedNodes, step)
}

// MarkCompleted appends step to CompletedNodes unless it is already present.
// Returns true when the list changed.
func (s *SessionState) MarkCompleted(step string) bool {
	if s.HasCompleted(step) {
		return false
	}
	s.CompletedNodes = append(s.CompletedNodes, step)
	return true
}
