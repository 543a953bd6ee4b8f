package skillcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SkillType is the complexity tier of a skill.
type SkillType string

const (
	TypeUnknown  SkillType = ""
	TypeSimple   SkillType = "simple"
	TypeStandard SkillType = "standard"
	TypeComplex  SkillType = "complex"
)

// ParseSkillType maps a name to a SkillType. Unrecognized names map to
// TypeUnknown.
func ParseSkillType(s string) SkillType {
	switch t := SkillType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSimple, TypeStandard, TypeComplex:
		return t
	default:
		return TypeUnknown
	}
}

// Layout lists the files and directories a skill type must have.
type Layout struct {
	Files       []string
	Directories []string
}

// Layouts holds the required layout per skill type.
var Layouts = map[SkillType]Layout{
	TypeSimple: {
		Files: []string{"SKILL.md", "README.md"},
	},
	TypeStandard: {
		Files:       []string{"SKILL.md", "README.md"},
		Directories: []string{"patterns", "checklists", "references"},
	},
	TypeComplex: {
		Files:       []string{"SKILL.md", "README.md"},
		Directories: []string{"process", "workspace-template", "frameworks", "validators", "references"},
	},
}

// DetectSkillType infers the type from SKILL.md. Returns TypeUnknown when
// SKILL.md is missing.
func DetectSkillType(dir string) SkillType {
	content, ok := readText(filepath.Join(dir, "SKILL.md"))
	if !ok {
		return TypeUnknown
	}
	switch {
	case strings.Contains(content, "COR Process Flow"), strings.Contains(content, "COR-AFP-NTP"):
		return TypeComplex
	case strings.Contains(content, "patterns/"), strings.Contains(content, "## Patterns"):
		return TypeStandard
	default:
		return TypeSimple
	}
}

// ValidateStructure checks dir against the layout for skillType.
func ValidateStructure(dir string, skillType SkillType) *Report {
	r := NewReport()

	layout, ok := Layouts[skillType]
	if !ok {
		r.fail(fmt.Sprintf("Unknown skill type: %s", skillType))
		return r
	}

	for _, file := range layout.Files {
		r.check()
		info, err := os.Stat(filepath.Join(dir, file))
		switch {
		case err != nil:
			r.fail("Missing required file: " + file)
		case info.Size() == 0:
			r.warn("File is empty: " + file)
		}
	}

	for _, d := range layout.Directories {
		r.check()
		info, err := os.Stat(filepath.Join(dir, d))
		switch {
		case err != nil:
			r.fail("Missing required directory: " + d)
		case !info.IsDir():
			r.fail("Expected directory, found file: " + d)
		}
	}

	if skillType == TypeComplex {
		validateComplexStructure(dir, r)
	}
	return r
}

func validateComplexStructure(dir string, r *Report) {
	if exists(filepath.Join(dir, "process")) {
		r.check()
		if len(processNodes(dir)) == 0 {
			r.fail("No process nodes found (expected directories like 00-init)")
		}
	}

	r.check()
	if !exists(filepath.Join(dir, "workspace-template", "current-process.json")) {
		r.fail("Missing workspace-template/current-process.json")
	}

	for _, fw := range []string{"cor", "afp", "ntp"} {
		r.check()
		if !exists(filepath.Join(dir, "frameworks", fw)) {
			r.warn("Missing framework directory: frameworks/" + fw)
		}
	}
}
