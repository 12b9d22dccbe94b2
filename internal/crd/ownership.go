package crd

import (
	"fmt"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/ownership"
)

// OwnershipConflict reports when an installed CRD belongs to another
// manager or another Helm release. Empty when there is no conflict or
// the owner cannot be determined.
func OwnershipConflict(installed *domain.CRDRecord, expectedRelease string) string {
	owner := ownership.Detect(installed.Body)

	switch {
	case owner.Manager == domain.ManagerUnknown:
		return ""
	case owner.Manager != domain.ManagerHelm:
		if owner.App != "" {
			return fmt.Sprintf("CRD '%s' is managed by %s (app: %s), not Helm", installed.Name, owner.Manager, owner.App)
		}
		return fmt.Sprintf("CRD '%s' is managed by %s, not Helm", installed.Name, owner.Manager)
	case expectedRelease != "" && owner.Release != "" && owner.Release != expectedRelease:
		return fmt.Sprintf("CRD '%s' is owned by Helm release '%s', not the current release '%s'",
			installed.Name, owner.Release, expectedRelease)
	}
	return ""
}
