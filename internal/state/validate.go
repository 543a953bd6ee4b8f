package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/process"
)

// Validate checks the shape of a decoded record. Checks run in order and the
// first failing category is reported: missing required fields, then the
// current_node pattern, then the type of completed_nodes, then the optional
// fields.
func Validate(raw map[string]json.RawMessage) *errors.StateError {
	var missing []string
	for _, f := range RequiredFields {
		if !present(raw[f]) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return errors.NewStateError(errors.KindInvalidState,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil).
			WithFields(missing...)
	}

	var current string
	if err := json.Unmarshal(raw[FieldCurrentNode], &current); err != nil || !process.ValidStepID(current) {
		return errors.NewStateError(errors.KindInvalidState,
			fmt.Sprintf("invalid current_node format: %s", bytes.TrimSpace(raw[FieldCurrentNode])), nil).
			WithFields(FieldCurrentNode)
	}

	var completed []json.RawMessage
	if err := json.Unmarshal(raw[FieldCompletedNodes], &completed); err != nil {
		return errors.NewStateError(errors.KindInvalidState, "completed_nodes must be an array", nil).
			WithFields(FieldCompletedNodes)
	}
	seen := make(map[string]bool, len(completed))
	for _, item := range completed {
		var step string
		if err := json.Unmarshal(item, &step); err != nil {
			return errors.NewStateError(errors.KindInvalidState, "completed_nodes must contain only strings", nil).
				WithFields(FieldCompletedNodes)
		}
		if seen[step] {
			return errors.NewStateError(errors.KindInvalidState,
				fmt.Sprintf("completed_nodes contains %s more than once", step), nil).
				WithFields(FieldCompletedNodes)
		}
		seen[step] = true
	}

	for _, f := range []string{FieldSessionID, FieldStartedAt} {
		var s string
		if err := json.Unmarshal(raw[f], &s); err != nil {
			return errors.NewStateError(errors.KindInvalidState, fmt.Sprintf("%s must be a string", f), nil).
				WithFields(f)
		}
	}

	for _, f := range []string{FieldUpdatedAt, FieldSkillName, FieldSkillType} {
		if isNull(raw[f]) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw[f], &s); err != nil {
			return errors.NewStateError(errors.KindInvalidState, fmt.Sprintf("%s must be a string", f), nil).
				WithFields(f)
		}
	}

	if !isNull(raw[FieldNodeOutputs]) {
		var outputs map[string]string
		if err := json.Unmarshal(raw[FieldNodeOutputs], &outputs); err != nil {
			return errors.NewStateError(errors.KindInvalidState,
				"node_outputs must map step ids to file paths", nil).
				WithFields(FieldNodeOutputs)
		}
	}

	return nil
}

// present mirrors a truthiness check: absent, null, false, 0 and "" count
// as missing, while an empty array does not.
func present(v json.RawMessage) bool {
	if isNull(v) {
		return false
	}
	switch s := string(bytes.TrimSpace(v)); s {
	case "false", `""`:
		return false
	default:
		var n float64
		if err := json.Unmarshal(v, &n); err == nil && n == 0 {
			return false
		}
		return true
	}
}

func isNull(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || string(t) == "null"
}
