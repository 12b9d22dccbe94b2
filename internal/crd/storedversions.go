package crd

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// StoredVersionWarnings flags stored versions of the installed CRD
// that the proposed spec drops. Objects persisted under a dropped
// version become unreadable after the upgrade until migrated.
func StoredVersionWarnings(installed, proposed *domain.CRDRecord) []string {
	if len(installed.StoredVersions) == 0 {
		return nil
	}

	kept := sets.New(proposed.VersionNames()...)

	var warnings []string
	for _, sv := range installed.StoredVersions {
		if kept.Has(sv) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"Stored version '%s' is still in status.storedVersions but is being removed from spec.versions. "+
				"Existing objects stored as '%s' may become inaccessible. Migrate objects before removing the version.",
			sv, sv))
	}
	return warnings
}
