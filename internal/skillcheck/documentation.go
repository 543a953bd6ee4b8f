package skillcheck

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	minSkillMDLength = 500
	minReadmeLength  = 300
)

var (
	titleLine     = regexp.MustCompile(`(?m)^#\s+.+`)
	nodeTitleLine = regexp.MustCompile(`(?m)^#\s+`)
)

// ValidateDocumentation checks SKILL.md, README.md and, when a process
// directory exists, the README and exit script of every process node.
func ValidateDocumentation(dir string) *Report {
	r := NewReport()
	r.Merge(ValidateSkillMD(dir))
	r.Merge(ValidateReadme(dir))
	r.Merge(ValidateNodeDocs(dir))
	return r
}

// ValidateSkillMD checks SKILL.md frontmatter and sections.
func ValidateSkillMD(dir string) *Report {
	r := NewReport()

	r.check()
	content, ok := readText(filepath.Join(dir, "SKILL.md"))
	if !ok {
		r.fail("SKILL.md not found")
		return r
	}

	r.check()
	fm, err := ParseFrontmatter(content)
	if err != nil {
		r.fail(err.Error())
		return r
	}
	if fm == nil {
		r.fail("SKILL.md missing YAML frontmatter (---...---)")
		return r
	}

	for _, field := range []string{"name", "description"} {
		r.check()
		if !fieldPresent(fm[field]) {
			r.fail("SKILL.md missing required frontmatter field: " + field)
		}
	}

	r.check()
	if !fieldPresent(fm["allowed-tools"]) {
		r.warn("SKILL.md missing allowed-tools in frontmatter")
	}

	r.check()
	if !titleLine.MatchString(content) {
		r.fail("SKILL.md missing main title (# Title)")
	}

	r.check()
	if !containsAny(content, "## Purpose", "## Description") {
		r.warn("SKILL.md missing ## Purpose or ## Description section")
	}

	r.check()
	if !containsAny(content, "## Usage", "## Quick Start") {
		r.warn("SKILL.md missing ## Usage or ## Quick Start section")
	}

	r.check()
	if len(content) < minSkillMDLength {
		r.warn("SKILL.md appears to have minimal content")
	}
	return r
}

// ValidateReadme checks README.md for a title, usage and examples.
func ValidateReadme(dir string) *Report {
	r := NewReport()

	r.check()
	content, ok := readText(filepath.Join(dir, "README.md"))
	if !ok {
		r.fail("README.md not found")
		return r
	}

	r.check()
	if !titleLine.MatchString(content) {
		r.fail("README.md missing main title")
	}

	r.check()
	if !containsAny(content, "## Installation", "## Usage") {
		r.warn("README.md missing ## Installation or ## Usage section")
	}

	r.check()
	if !containsAny(content, "## Example", "```") {
		r.warn("README.md missing examples")
	}

	r.check()
	if len(content) < minReadmeLength {
		r.warn("README.md appears to have minimal content")
	}
	return r
}

// ValidateNodeDocs checks each process node for its README and exit script.
func ValidateNodeDocs(dir string) *Report {
	r := NewReport()

	for _, node := range processNodes(dir) {
		nodeDir := filepath.Join(dir, "process", node)

		r.check()
		if content, ok := readText(filepath.Join(nodeDir, "README.md")); !ok {
			r.fail(fmt.Sprintf("Node %s missing README.md", node))
		} else {
			r.check()
			if !nodeTitleLine.MatchString(content) {
				r.warn(fmt.Sprintf("Node %s/README.md missing title", node))
			}
			r.check()
			if !strings.Contains(content, "## Purpose") {
				r.warn(fmt.Sprintf("Node %s/README.md missing ## Purpose", node))
			}
			r.check()
			if !strings.Contains(content, "## Exit Validation") {
				r.warn(fmt.Sprintf("Node %s/README.md missing ## Exit Validation", node))
			}
		}

		r.check()
		if !exists(filepath.Join(nodeDir, "exit-validation.sh")) {
			r.fail(fmt.Sprintf("Node %s missing exit-validation.sh", node))
		}
	}
	return r
}

// ParseFrontmatter decodes the leading YAML block of a markdown document.
// Returns nil, nil when the document has no frontmatter.
func ParseFrontmatter(content string) (map[string]any, error) {
	fm, has, err := splitFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("SKILL.md frontmatter: %w", err)
	}
	if !has {
		return nil, nil
	}
	props := map[string]any{}
	if err := yaml.Unmarshal([]byte(fm), &props); err != nil {
		return nil, fmt.Errorf("SKILL.md frontmatter is not valid YAML: %w", err)
	}
	return props, nil
}

// splitFrontmatter returns the text between a leading "---" line and the
// next "---" line. An unterminated block is reported as an error.
func splitFrontmatter(s string) (string, bool, error) {
	br := bufio.NewReader(strings.NewReader(s))

	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if strings.TrimSpace(first) != "---" {
		return "", false, nil
	}

	var lines []string
	for {
		line, lerr := br.ReadString('\n')
		if lerr != nil && !errors.Is(lerr, io.EOF) {
			return "", false, lerr
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(trimmed) == "---" {
			return strings.Join(lines, "\n"), true, nil
		}
		lines = append(lines, trimmed)
		if errors.Is(lerr, io.EOF) {
			return "", false, errors.New("unterminated frontmatter (missing closing ---)")
		}
	}
}

// fieldPresent treats nil and blank strings as absent. Lists and maps count
// as present even when empty.
func fieldPresent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	default:
		return true
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
