// Package risk grades field changes with graduated severity levels
// using ordered, first-match-wins rule tables.
package risk

import (
	"fmt"
	"slices"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/pkg/pathmatch"
)

// Rule maps changes at matching paths to a risk annotation. Rules are
// evaluated in table order and the first match wins, so specific rows
// must precede broader ones.
type Rule struct {
	Name          string
	Level         domain.RiskLevel
	Pattern       pathmatch.Pattern
	ChangeKinds   []domain.ChangeKind // empty matches any kind
	ResourceKinds []string            // empty matches any resource
	// ExcludeSegment skips the rule when the path contains the named
	// segment anywhere.
	ExcludeSegment string
	// NewValueIn restricts the rule to changes whose new value renders
	// to one of the listed strings.
	NewValueIn []string
	Message    func(fc domain.FieldChange) string
}

func (r Rule) matches(fc domain.FieldChange, segs []pathmatch.Segment, resourceKind string) bool {
	if len(r.ResourceKinds) > 0 && !slices.Contains(r.ResourceKinds, resourceKind) {
		return false
	}
	if len(r.ChangeKinds) > 0 && !slices.Contains(r.ChangeKinds, fc.Kind) {
		return false
	}
	if len(r.NewValueIn) > 0 && !slices.Contains(r.NewValueIn, fmt.Sprintf("%v", fc.New)) {
		return false
	}
	if r.ExcludeSegment != "" {
		for _, s := range segs {
			if !s.IsIndex && s.Key == r.ExcludeSegment {
				return false
			}
		}
	}
	return r.Pattern.MatchesSegments(segs)
}

func (r Rule) annotate(fc domain.FieldChange) domain.RiskAnnotation {
	return domain.RiskAnnotation{
		Level:   r.Level,
		Rule:    r.Name,
		Message: r.Message(fc),
		Path:    fc.Path,
	}
}

// Classify runs one change through a rule table and returns the first
// matching rule's annotation, or none. Results depend only on table
// order, never on map iteration.
func Classify(fc domain.FieldChange, resourceKind string, table []Rule) []domain.RiskAnnotation {
	segs, err := pathmatch.ParsePath(fc.Path)
	if err != nil {
		return nil
	}
	for _, rule := range table {
		if rule.matches(fc, segs, resourceKind) {
			return []domain.RiskAnnotation{rule.annotate(fc)}
		}
	}
	return nil
}

var externalServiceTypes = []string{
	string(corev1.ServiceTypeNodePort),
	string(corev1.ServiceTypeLoadBalancer),
}

var workloadKinds = []string{
	domain.KindDeployment,
	domain.KindStatefulSet,
	domain.KindDaemonSet,
}

// GenericRules grade changes on ordinary resources. Unmatched changes
// carry no annotation.
var GenericRules = []Rule{
	{
		Name:          "service_type_change",
		Level:         domain.RiskDanger,
		Pattern:       pathmatch.MustCompile("spec.type"),
		ChangeKinds:   []domain.ChangeKind{domain.ChangeValueChanged},
		ResourceKinds: []string{domain.KindService},
		NewValueIn:    externalServiceTypes,
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("Service type changed from '%v' to '%v' (exposes the service externally)", fc.Old, fc.New)
		},
	},
	{
		Name:          "service_type_change",
		Level:         domain.RiskWarning,
		Pattern:       pathmatch.MustCompile("spec.type"),
		ChangeKinds:   []domain.ChangeKind{domain.ChangeValueChanged},
		ResourceKinds: []string{domain.KindService},
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("Service type changed from '%v' to '%v'", fc.Old, fc.New)
		},
	},
	{
		Name:          "cluster_ip_change",
		Level:         domain.RiskDanger,
		Pattern:       pathmatch.MustCompile("spec.clusterIP"),
		ResourceKinds: []string{domain.KindService},
		Message: func(fc domain.FieldChange) string {
			return "spec.clusterIP is immutable; the change forces resource replacement"
		},
	},
	{
		Name:          "selector_change",
		Level:         domain.RiskDanger,
		Pattern:       pathmatch.MustCompile("spec.selector.**"),
		ResourceKinds: workloadKinds,
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("spec.selector is immutable on workloads; change at '%s' will be rejected", fc.Path)
		},
	},
	{
		Name:          "volume_claim_templates_change",
		Level:         domain.RiskDanger,
		Pattern:       pathmatch.MustCompile("spec.volumeClaimTemplates.**"),
		ResourceKinds: []string{domain.KindStatefulSet},
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("volumeClaimTemplates are immutable on StatefulSets; change at '%s' will be rejected", fc.Path)
		},
	},
	{
		Name:          "pvc_storage_class_change",
		Level:         domain.RiskDanger,
		Pattern:       pathmatch.MustCompile("spec.storageClassName"),
		ResourceKinds: []string{domain.KindPersistentVolumeClaim},
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("Storage class changed from '%v' to '%v'; storageClassName is immutable", fc.Old, fc.New)
		},
	},
	{
		Name:          "pvc_size_change",
		Level:         domain.RiskWarning,
		Pattern:       pathmatch.MustCompile("spec.resources.requests.storage"),
		ChangeKinds:   []domain.ChangeKind{domain.ChangeValueChanged},
		ResourceKinds: []string{domain.KindPersistentVolumeClaim},
		Message: func(fc domain.FieldChange) string {
			oldStr := fmt.Sprintf("%v", fc.Old)
			newStr := fmt.Sprintf("%v", fc.New)
			oldQ, oldErr := resource.ParseQuantity(oldStr)
			newQ, newErr := resource.ParseQuantity(newStr)
			if oldErr == nil && newErr == nil && newQ.Cmp(oldQ) < 0 {
				return fmt.Sprintf("PVC storage request shrunk from '%s' to '%s'; volumes cannot shrink", oldStr, newStr)
			}
			return fmt.Sprintf("PVC storage request changed from '%s' to '%s'", oldStr, newStr)
		},
	},
	{
		Name:          "rbac_rules_change",
		Level:         domain.RiskWarning,
		Pattern:       pathmatch.MustCompile("rules.**"),
		ResourceKinds: []string{domain.KindRole, domain.KindClusterRole},
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("RBAC rules changed at '%s'", fc.Path)
		},
	},
}

// AssessAll grades every report in place: a removal warning for
// removed resources, then one annotation per rule-matched field
// change.
func AssessAll(reports []domain.ResourceReport) {
	for i := range reports {
		reports[i].Risk = assess(&reports[i])
	}
}

func assess(report *domain.ResourceReport) []domain.RiskAnnotation {
	var out []domain.RiskAnnotation
	if report.Status == domain.StatusRemoved {
		out = append(out, domain.RiskAnnotation{
			Level:   domain.RiskWarning,
			Rule:    "resource_removed",
			Message: fmt.Sprintf("Resource %s will be removed by this upgrade", report.Key),
		})
	}
	for _, fc := range report.Fields {
		out = append(out, Classify(fc, report.Key.Kind, GenericRules)...)
	}
	return out
}
