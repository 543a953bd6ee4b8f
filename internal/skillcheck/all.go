package skillcheck

import (
	"fmt"
	"os"
)

// Totals sums checks, failures and warnings over the validations that ran.
type Totals struct {
	Checks   int `json:"total_checks"`
	Failures int `json:"total_failures"`
	Warnings int `json:"total_warnings"`
}

// Skipped marks a validation that did not apply.
type Skipped struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

// Result is the aggregate of every validation for one skill.
type Result struct {
	Passed        bool        `json:"passed"`
	SkillDir      string      `json:"skill_dir"`
	SkillType     SkillType   `json:"skill_type"`
	Structure     *Report     `json:"structure"`
	Documentation *Report     `json:"documentation"`
	Compliance    *Compliance `json:"cor_compliance,omitempty"`
	// ComplianceSkipped is set instead of Compliance for non-complex skills.
	ComplianceSkipped *Skipped `json:"cor_compliance_skipped,omitempty"`
	Summary           Totals   `json:"summary"`
}

// Warnings returns every warning in report order.
func (r *Result) Warnings() []string {
	var out []string
	out = append(out, r.Structure.Warnings...)
	out = append(out, r.Documentation.Warnings...)
	if r.Compliance != nil {
		out = append(out, r.Compliance.Warnings...)
	}
	return out
}

// ValidateAll runs structure and documentation checks, plus compliance for
// complex skills. An empty skillType is detected from SKILL.md.
func ValidateAll(dir string, skillType SkillType) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	if skillType == TypeUnknown {
		skillType = DetectSkillType(dir)
	}
	if skillType == TypeUnknown {
		return nil, fmt.Errorf("could not determine skill type for %s", dir)
	}

	res := &Result{
		Passed:        true,
		SkillDir:      dir,
		SkillType:     skillType,
		Structure:     ValidateStructure(dir, skillType),
		Documentation: ValidateDocumentation(dir),
	}

	ran := []*Report{res.Structure, res.Documentation}
	if skillType == TypeComplex {
		res.Compliance = ValidateCompliance(dir)
		ran = append(ran, &res.Compliance.Report)
	} else {
		res.ComplianceSkipped = &Skipped{
			Skipped: true,
			Reason:  fmt.Sprintf("Not a complex skill (type: %s)", skillType),
		}
	}

	for _, r := range ran {
		res.Passed = res.Passed && r.Passed
		res.Summary.Checks += r.Checks
		res.Summary.Failures += len(r.Failures)
		res.Summary.Warnings += len(r.Warnings)
	}
	return res, nil
}
