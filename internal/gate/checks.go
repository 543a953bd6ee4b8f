package gate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// CheckResult is the outcome of a single assertion.
type CheckResult struct {
	Check  string `json:"check"`
	Path   string `json:"path"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// Check is a deferred assertion.
type Check func() CheckResult

// Summary aggregates a batch of assertions.
type Summary struct {
	Passed   bool          `json:"passed"`
	Results  []CheckResult `json:"results"`
	Failures []CheckResult `json:"failures"`
}

// RunChecks evaluates every check; it does not stop at the first failure.
func RunChecks(checks ...Check) Summary {
	s := Summary{Passed: true, Results: []CheckResult{}, Failures: []CheckResult{}}
	for _, c := range checks {
		r := c()
		s.Results = append(s.Results, r)
		if !r.Passed {
			s.Passed = false
			s.Failures = append(s.Failures, r)
		}
	}
	return s
}

// PrintResults writes one ✓/✗ line per check followed by a summary line.
func PrintResults(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	for _, r := range s.Results {
		if r.Passed {
			fmt.Fprintf(w, "✓ %s\n", r.Check)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.Check)
		fmt.Fprintf(w, "  Error: %s\n", r.Error)
	}
	fmt.Fprintln(w)

	if s.Passed {
		fmt.Fprintln(w, "All validations passed!")
	} else {
		fmt.Fprintf(w, "%d validation(s) failed.\n", len(s.Failures))
	}
}

// FileExists asserts that path exists.
func FileExists(path string) Check {
	return func() CheckResult {
		_, err := os.Stat(path)
		return result("File exists", path, err == nil, "File not found: "+path)
	}
}

// DirectoryExists asserts that path exists and is a directory.
func DirectoryExists(path string) Check {
	return func() CheckResult {
		info, err := os.Stat(path)
		return result("Directory exists", path, err == nil && info.IsDir(), "Directory not found: "+path)
	}
}

// ValidJSON asserts that path holds parseable JSON.
func ValidJSON(path string) Check {
	return func() CheckResult {
		const name = "Valid JSON"
		if _, err := readJSON(path); err != nil {
			return result(name, path, false, err.Error())
		}
		return result(name, path, true, "")
	}
}

// HasField asserts that the dotted field path resolves to a value that is
// not null and not the empty string.
func HasField(path, field string) Check {
	return func() CheckResult {
		name := "Has field: " + field
		doc, err := readJSON(path)
		if err != nil {
			return result(name, path, false, err.Error())
		}
		v, ok := lookup(doc, field)
		passed := ok && v != nil && v != ""
		return result(name, path, passed, "Missing or empty field: "+field)
	}
}

// FieldMatches asserts that the dotted field's string form matches pattern.
func FieldMatches(path, field, pattern string) Check {
	return func() CheckResult {
		name := "Field matches pattern: " + field
		re, err := regexp.Compile(pattern)
		if err != nil {
			return result(name, path, false, fmt.Sprintf("invalid pattern: %v", err))
		}
		doc, err := readJSON(path)
		if err != nil {
			return result(name, path, false, err.Error())
		}
		v, ok := lookup(doc, field)
		passed := ok && v != nil && re.MatchString(stringify(v))
		return result(name, path, passed, fmt.Sprintf("Field %s does not match pattern %s", field, pattern))
	}
}

// ArrayMinLength asserts that the dotted field is an array with at least
// minLength items.
func ArrayMinLength(path, field string, minLength int) Check {
	return func() CheckResult {
		name := fmt.Sprintf("Array min length: %s >= %d", field, minLength)
		doc, err := readJSON(path)
		if err != nil {
			return result(name, path, false, err.Error())
		}
		v, _ := lookup(doc, field)
		arr, ok := v.([]any)
		passed := ok && len(arr) >= minLength
		return result(name, path, passed, fmt.Sprintf("Array %s has fewer than %d items", field, minLength))
	}
}

func result(check, path string, passed bool, errMsg string) CheckResult {
	r := CheckResult{Check: check, Path: path, Passed: passed}
	if !passed {
		r.Error = errMsg
	}
	return r
}

func readJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("File not found: %s", path)
		}
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("Invalid JSON: %v", err)
	}
	return doc, nil
}

// lookup walks a dotted path through nested objects. Array elements can be
// addressed by index, e.g. "items.0.name".
func lookup(doc any, field string) (any, bool) {
	cur := doc
	for _, key := range strings.Split(field, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			var i int
			if _, err := fmt.Sscanf(key, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
