// Package skillcheck inspects a skill directory tree and reports whether it
// follows the layout and documentation conventions for its skill type.
//
// Every checker is read-only and returns a [Report]. Failures make a report
// fail; warnings never do.
package skillcheck

import (
	"os"
	"path/filepath"
	"regexp"
)

// Report is the result shape shared by every checker.
type Report struct {
	Passed   bool     `json:"passed"`
	Checks   int      `json:"checks"`
	Failures []string `json:"failures"`
	Warnings []string `json:"warnings"`
}

// NewReport returns an empty passing report.
func NewReport() *Report {
	return &Report{Passed: true, Failures: []string{}, Warnings: []string{}}
}

func (r *Report) check() {
	r.Checks++
}

func (r *Report) fail(msg string) {
	r.Passed = false
	r.Failures = append(r.Failures, msg)
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Merge folds other into r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Passed = r.Passed && other.Passed
	r.Checks += other.Checks
	r.Failures = append(r.Failures, other.Failures...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

var nodeDirPattern = regexp.MustCompile(`^[0-9]{2}-`)

// processNodes lists the NN-* directories under dir/process in name order.
// Returns nil when the process directory is absent.
func processNodes(dir string) []string {
	entries, err := os.ReadDir(filepath.Join(dir, "process"))
	if err != nil {
		return nil
	}
	nodes := []string{}
	for _, e := range entries {
		if e.IsDir() && nodeDirPattern.MatchString(e.Name()) {
			nodes = append(nodes, e.Name())
		}
	}
	return nodes
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readText(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
