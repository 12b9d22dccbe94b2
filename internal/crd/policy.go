package crd

import (
	"fmt"
	"strings"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// EvaluatePolicy turns the collected CRD findings into a pass/block
// verdict. Only fail mode with at least one danger-level CRD blocks
// the upgrade.
func EvaluatePolicy(report *domain.CRDReport, mode domain.PolicyMode) domain.PolicyDecision {
	if mode == domain.PolicyIgnore {
		return domain.PolicyDecision{
			Mode:    mode,
			Message: "CRD policy: ignore (all CRD issues suppressed)",
		}
	}

	var dangers, warnings []string
	for _, c := range report.CRDs {
		switch c.MaxRisk() {
		case domain.RiskDanger:
			dangers = append(dangers, c.Name)
		case domain.RiskWarning:
			warnings = append(warnings, c.Name)
		}
	}

	if mode == domain.PolicyWarn {
		var parts []string
		if len(dangers) > 0 {
			parts = append(parts, fmt.Sprintf("%d CRD(s) with DANGER-level changes: %s", len(dangers), strings.Join(dangers, ", ")))
		}
		if len(warnings) > 0 {
			parts = append(parts, fmt.Sprintf("%d CRD(s) with WARNING-level changes: %s", len(warnings), strings.Join(warnings, ", ")))
		}
		msg := "CRD policy: warn (no issues found)"
		if len(parts) > 0 {
			msg = "CRD policy: warn - " + strings.Join(parts, "; ")
		}
		return domain.PolicyDecision{Mode: mode, Message: msg}
	}

	if len(dangers) > 0 {
		return domain.PolicyDecision{
			Mode:    mode,
			Blocked: true,
			Message: fmt.Sprintf("CRD policy: fail - %d CRD(s) with DANGER-level changes: %s", len(dangers), strings.Join(dangers, ", ")),
		}
	}
	if len(warnings) > 0 {
		return domain.PolicyDecision{
			Mode:    mode,
			Message: fmt.Sprintf("CRD policy: fail (passed) - %d CRD(s) with WARNING-level changes: %s", len(warnings), strings.Join(warnings, ", ")),
		}
	}
	return domain.PolicyDecision{Mode: mode, Message: "CRD policy: fail (passed) - no issues found"}
}
