package skillcheck

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var templateVar = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// Compliance is the combined COR, AFP and NTP result for a complex skill.
type Compliance struct {
	Report
	COR   *Report  `json:"cor"`
	AFP   *Report  `json:"afp"`
	NTP   *Report  `json:"ntp"`
	Nodes []string `json:"nodes"`
}

// ValidateCompliance runs the COR, AFP and NTP checks.
func ValidateCompliance(dir string) *Compliance {
	c := &Compliance{
		Report: *NewReport(),
		COR:    ValidateCOR(dir),
		AFP:    ValidateAFP(dir),
		NTP:    ValidateNTP(dir),
		Nodes:  processNodes(dir),
	}
	if c.Nodes == nil {
		c.Nodes = []string{}
	}
	c.Merge(c.COR)
	c.Merge(c.AFP)
	c.Merge(c.NTP)
	return c
}

// ValidateCOR checks the process chain: the node directories, their
// numbering and their required files.
func ValidateCOR(dir string) *Report {
	r := NewReport()

	r.check()
	if !exists(filepath.Join(dir, "process")) {
		r.fail("COR: process/ directory not found")
		return r
	}

	nodes := processNodes(dir)
	r.check()
	if len(nodes) == 0 {
		r.fail("COR: No process nodes found")
		return r
	}

	r.check()
	for i, node := range nodes {
		want := fmt.Sprintf("%02d", i)
		if !strings.HasPrefix(node, want) {
			r.warn(fmt.Sprintf("COR: Node numbering gap - expected %s-*, found %s", want, node))
		}
	}

	for _, node := range nodes {
		nodeDir := filepath.Join(dir, "process", node)

		r.check()
		if !exists(filepath.Join(nodeDir, "README.md")) {
			r.fail(fmt.Sprintf("COR: Node %s missing README.md", node))
		}
		r.check()
		if !exists(filepath.Join(nodeDir, "exit-validation.sh")) {
			r.fail(fmt.Sprintf("COR: Node %s missing exit-validation.sh", node))
		}
	}

	r.check()
	if content, ok := readText(filepath.Join(dir, "SKILL.md")); ok && !strings.Contains(content, "COR") {
		r.warn("COR: SKILL.md should document the COR process flow")
	}
	return r
}

// ValidateAFP checks the state template and recovery tooling.
func ValidateAFP(dir string) *Report {
	r := NewReport()

	r.check()
	tmplDir := filepath.Join(dir, "workspace-template")
	if !exists(tmplDir) {
		r.fail("AFP: workspace-template/ directory not found")
		return r
	}

	r.check()
	if content, ok := readText(filepath.Join(tmplDir, "current-process.json")); !ok {
		r.fail("AFP: workspace-template/current-process.json not found")
	} else if !validTemplateJSON(content) {
		r.fail("AFP: current-process.json is not valid JSON")
	} else {
		r.check()
	}

	r.check()
	afpDir := filepath.Join(dir, "frameworks", "afp")
	if !exists(afpDir) {
		r.warn("AFP: frameworks/afp/ directory not found")
	} else {
		r.check()
		if !exists(filepath.Join(afpDir, "recover-state.js")) {
			r.warn("AFP: recover-state.js not found")
		}
		r.check()
		if !exists(filepath.Join(afpDir, "quick-health-check.sh")) {
			r.warn("AFP: quick-health-check.sh not found")
		}
	}

	r.check()
	if content, ok := readText(filepath.Join(dir, "SKILL.md")); ok &&
		!containsAny(content, "## AFP State", "State Management") {
		r.warn("AFP: SKILL.md should document state management")
	}
	return r
}

// ValidateNTP checks exit scripts and the transition tooling.
func ValidateNTP(dir string) *Report {
	r := NewReport()

	if !exists(filepath.Join(dir, "process")) {
		return r
	}

	for _, node := range processNodes(dir) {
		r.check()
		content, ok := readText(filepath.Join(dir, "process", node, "exit-validation.sh"))
		if !ok {
			continue
		}
		if !strings.HasPrefix(content, "#!/bin/bash") {
			r.warn(fmt.Sprintf("NTP: %s/exit-validation.sh missing shebang", node))
		}
		if !strings.Contains(content, "echo") || !strings.Contains(content, "exit") {
			r.warn(fmt.Sprintf("NTP: %s/exit-validation.sh may be incomplete", node))
		}
	}

	r.check()
	ntpDir := filepath.Join(dir, "frameworks", "ntp")
	if !exists(ntpDir) {
		r.warn("NTP: frameworks/ntp/ directory not found")
	} else {
		r.check()
		if !exists(filepath.Join(ntpDir, "node-transition.js")) {
			r.warn("NTP: node-transition.js not found")
		}
	}
	return r
}

// validTemplateJSON accepts JSON containing {{UPPER_CASE}} placeholders.
func validTemplateJSON(content string) bool {
	cleaned := templateVar.ReplaceAllString(content, "placeholder")
	return json.Valid([]byte(cleaned))
}
