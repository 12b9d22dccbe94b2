// Package ownership attributes resources to the tool managing them by
// inspecting well-known bookkeeping labels and annotations.
package ownership

import (
	"strings"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/pkg/convert"
)

// Detect determines who manages a resource document. Helm signals win
// over ArgoCD, ArgoCD over Flux. Detection never fails; a resource
// without recognizable bookkeeping comes back as ManagerUnknown.
func Detect(body map[string]any) domain.Ownership {
	labels := metadataStrings(body, "labels")
	annotations := metadataStrings(body, "annotations")

	if labels[domain.LabelManagedBy] == "Helm" || annotations[domain.AnnotationHelmRelease] != "" {
		return domain.Ownership{
			Manager: domain.ManagerHelm,
			Release: annotations[domain.AnnotationHelmRelease],
		}
	}

	// ArgoCD writes a tracking annotation of the form
	// "app:group/Kind:namespace/name"; the app name is the first field.
	if tracking := annotations[domain.AnnotationArgoCDTracking]; tracking != "" {
		app, _, _ := strings.Cut(tracking, ":")
		return domain.Ownership{Manager: domain.ManagerArgoCD, App: app}
	}
	if app := labels[domain.LabelArgoCDInstance]; app != "" {
		return domain.Ownership{Manager: domain.ManagerArgoCD, App: app}
	}

	if app := labels[domain.LabelFluxKustomizeName]; app != "" {
		return domain.Ownership{Manager: domain.ManagerFlux, App: app}
	}
	if app := labels[domain.LabelFluxHelmName]; app != "" {
		return domain.Ownership{Manager: domain.ManagerFlux, App: app}
	}

	return domain.Ownership{Manager: domain.ManagerUnknown}
}

// DetectForPair reads ownership from the proposed document when
// present, otherwise from the live one.
func DetectForPair(pair domain.ResourcePair) domain.Ownership {
	if cur := pair.Current(); cur != nil {
		return Detect(cur.Body)
	}
	return domain.Ownership{Manager: domain.ManagerUnknown}
}

func metadataStrings(body map[string]any, key string) map[string]string {
	raw := convert.DigMap(body, "metadata", key)
	if raw == nil {
		return nil
	}
	out, err := convert.ToStringMap(raw)
	if err != nil {
		return nil
	}
	return out
}
