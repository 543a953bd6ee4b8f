package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/testutil"
)

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	ws, _ := testutil.SetupWorkspace(t)
	return NewStore(ws, "", WithClock(func() time.Time { return fixedNow })), ws
}

func validRecord() map[string]any {
	return map[string]any{
		"session_id":      "s1",
		"current_node":    "00-requirements",
		"completed_nodes": []string{},
		"started_at":      "2024-01-01T00:00:00.000Z",
	}
}

func TestStore_LoadFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    errors.Kind
	}{
		{"missing file", nil, errors.KindNoSession},
		{"malformed json", ptr(`{"session_id": "s1",`), errors.KindCorruptState},
		{"not an object", ptr(`[1, 2, 3]`), errors.KindCorruptState},
		{"null document", ptr(`null`), errors.KindCorruptState},
		{"missing fields", ptr(`{"session_id": "s1"}`), errors.KindInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, ws := newTestStore(t)
			if tt.content != nil {
				testutil.WriteFile(t, ws, DefaultFileName, *tt.content)
			}

			_, err := store.Load()
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if got := errors.KindOf(err); got != tt.want {
				t.Errorf("KindOf(err) = %v, want %v (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestStore_SaveLoadIdentity(t *testing.T) {
	store, ws := newTestStore(t)
	rec := validRecord()
	rec["completed_nodes"] = []string{"00-requirements"}
	rec["current_node"] = "01-classification"
	rec["node_outputs"] = map[string]string{"00-requirements": "req.json"}
	rec["skill_name"] = "demo"
	rec["custom"] = map[string]any{"k": "v"}
	testutil.WriteState(t, ws, rec)

	before := decodeMap(t, testutil.ReadState(t, ws))

	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	after := decodeMap(t, testutil.ReadState(t, ws))
	if after["updated_at"] != "2025-03-04T05:06:07.000Z" {
		t.Errorf("updated_at = %v, want stamped clock time", after["updated_at"])
	}
	delete(before, "updated_at")
	delete(after, "updated_at")
	if !reflect.DeepEqual(before, after) {
		t.Errorf("save(load()) changed fields:\nbefore %v\nafter  %v", before, after)
	}
}

func TestStore_SavePreservesBytes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty optional fields and input key order",
			in: `{
  "skill_name": "",
  "session_id": "s1",
  "current_node": "00-requirements",
  "completed_nodes": [],
  "started_at": "2024-01-01T00:00:00.000Z",
  "updated_at": "2024-01-01T00:00:00.000Z",
  "node_outputs": {}
}
`,
			want: `{
  "skill_name": "",
  "session_id": "s1",
  "current_node": "00-requirements",
  "completed_nodes": [],
  "started_at": "2024-01-01T00:00:00.000Z",
  "updated_at": "2025-03-04T05:06:07.000Z",
  "node_outputs": {}
}
`,
		},
		{
			name: "unknown fields keep their place and updated_at is appended",
			in: `{
  "zeta": 1,
  "session_id": "s1",
  "node_outputs": {
    "01-classification": "class.json",
    "00-requirements": "req.json"
  },
  "alpha": {
    "z": true,
    "a": null
  },
  "current_node": "00-requirements",
  "completed_nodes": [],
  "started_at": "2024-01-01T00:00:00.000Z"
}
`,
			want: `{
  "zeta": 1,
  "session_id": "s1",
  "node_outputs": {
    "01-classification": "class.json",
    "00-requirements": "req.json"
  },
  "alpha": {
    "z": true,
    "a": null
  },
  "current_node": "00-requirements",
  "completed_nodes": [],
  "started_at": "2024-01-01T00:00:00.000Z",
  "updated_at": "2025-03-04T05:06:07.000Z"
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, ws := newTestStore(t)
			testutil.WriteFile(t, ws, testutil.StateFileName, tt.in)

			st, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := store.Save(st); err != nil {
				t.Fatalf("Save: %v", err)
			}

			if got := string(testutil.ReadState(t, ws)); got != tt.want {
				t.Errorf("save(load()) =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestStore_SaveWritesOnlyChangedFields(t *testing.T) {
	store, ws := newTestStore(t)
	testutil.WriteFile(t, ws, testutil.StateFileName, `{
  "session_id": "s1",
  "current_node": "00-requirements",
  "completed_nodes": [],
  "started_at": "2024-01-01T00:00:00.000Z",
  "skill_type": ""
}
`)

	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st.MarkCompleted("00-requirements")
	st.CurrentNode = "01-classification"
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	want := `{
  "session_id": "s1",
  "current_node": "01-classification",
  "completed_nodes": [
    "00-requirements"
  ],
  "started_at": "2024-01-01T00:00:00.000Z",
  "skill_type": "",
  "updated_at": "2025-03-04T05:06:07.000Z"
}
`
	if got := string(testutil.ReadState(t, ws)); got != want {
		t.Errorf("saved record =\n%s\nwant\n%s", got, want)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	store, ws := newTestStore(t)
	st := New("s1", "00-requirements", fixedNow)
	if err := store.Save(st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(ws)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if st.UpdatedAt == "" {
		t.Error("Save should stamp UpdatedAt on the record")
	}
}

func TestStore_Create(t *testing.T) {
	root := t.TempDir()
	ws := filepath.Join(root, "nested", "workspace")
	store := NewStore(ws, "")

	st := New("s1", "00-requirements", fixedNow)
	if err := store.Create(st, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(st, false); err == nil {
		t.Error("second Create without overwrite should fail")
	}
	if err := store.Create(New("s2", "00-requirements", fixedNow), true); err != nil {
		t.Fatalf("Create with overwrite: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SessionID != "s2" {
		t.Errorf("SessionID = %q, want s2", loaded.SessionID)
	}
}

func TestStore_Path(t *testing.T) {
	store := NewStore("/ws", "state.json")
	if store.Path() != filepath.Join("/ws", "state.json") {
		t.Errorf("Path() = %q", store.Path())
	}
	if NewStore("/ws", "").Path() != filepath.Join("/ws", DefaultFileName) {
		t.Error("empty file name should select the default")
	}
}

func decodeMap(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func ptr(s string) *string { return &s }
