package state

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/skillcreator/skillgate/internal/errors"
)

func rawOf(t *testing.T, doc string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return raw
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantFields []string
	}{
		{
			name: "valid minimal",
			doc:  `{"session_id":"s1","current_node":"00-requirements","completed_nodes":[],"started_at":"t0"}`,
		},
		{
			name: "valid full",
			doc: `{"session_id":"s1","current_node":"03-templates","completed_nodes":["00-requirements"],
				"started_at":"t0","updated_at":"t1","node_outputs":{"00-requirements":"a.json"},"skill_name":"x","extra":1}`,
		},
		{
			name:       "missing fields listed in order",
			doc:        `{"current_node":"00-requirements","completed_nodes":[]}`,
			wantFields: []string{"session_id", "started_at"},
		},
		{
			name:       "empty string counts as missing",
			doc:        `{"session_id":"","current_node":"00-requirements","completed_nodes":[],"started_at":"t0"}`,
			wantFields: []string{"session_id"},
		},
		{
			name:       "null completed_nodes counts as missing",
			doc:        `{"session_id":"s1","current_node":"00-requirements","completed_nodes":null,"started_at":"t0"}`,
			wantFields: []string{"completed_nodes"},
		},
		{
			name:       "bad current_node pattern",
			doc:        `{"session_id":"s1","current_node":"Requirements","completed_nodes":[],"started_at":"t0"}`,
			wantFields: []string{"current_node"},
		},
		{
			name:       "current_node not a string",
			doc:        `{"session_id":"s1","current_node":7,"completed_nodes":[],"started_at":"t0"}`,
			wantFields: []string{"current_node"},
		},
		{
			name:       "completed_nodes not an array",
			doc:        `{"session_id":"s1","current_node":"00-requirements","completed_nodes":"00-requirements","started_at":"t0"}`,
			wantFields: []string{"completed_nodes"},
		},
		{
			name:       "completed_nodes duplicates",
			doc:        `{"session_id":"s1","current_node":"02-structure","completed_nodes":["00-a","00-a"],"started_at":"t0"}`,
			wantFields: []string{"completed_nodes"},
		},
		{
			name:       "node_outputs wrong shape",
			doc:        `{"session_id":"s1","current_node":"00-requirements","completed_nodes":[],"started_at":"t0","node_outputs":["a"]}`,
			wantFields: []string{"node_outputs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(rawOf(t, tt.doc))
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want InvalidState")
			}
			if err.Kind() != errors.KindInvalidState {
				t.Errorf("Kind = %v, want InvalidState", err.Kind())
			}
			if !slices.Equal(err.Fields, tt.wantFields) {
				t.Errorf("Fields = %v, want %v", err.Fields, tt.wantFields)
			}
		})
	}
}
