package risk

import (
	"fmt"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/pkg/pathmatch"
)

// CRDRules grade schema-level changes on CustomResourceDefinitions.
// The trailing catch-all guarantees every change receives exactly one
// annotation.
var CRDRules = []Rule{
	{
		Name:    "crd_metadata_change",
		Level:   domain.RiskSafe,
		Pattern: pathmatch.MustCompile("metadata.annotations.*.**"),
		Message: pathMessage("Metadata change at '%s'"),
	},
	{
		Name:    "crd_metadata_change",
		Level:   domain.RiskSafe,
		Pattern: pathmatch.MustCompile("metadata.labels.*.**"),
		Message: pathMessage("Metadata change at '%s'"),
	},
	{
		Name:    "crd_printer_columns",
		Level:   domain.RiskSafe,
		Pattern: pathmatch.MustCompile("spec.versions[*].additionalPrinterColumns.**"),
		Message: pathMessage("Printer column change at '%s'"),
	},
	{
		Name:        "crd_version_added",
		Level:       domain.RiskSafe,
		Pattern:     pathmatch.MustCompile("spec.versions[*]"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeItemAdded},
		Message:     staticMessage("New CRD version added"),
	},
	{
		Name:           "crd_optional_property_added",
		Level:          domain.RiskSafe,
		Pattern:        pathmatch.MustCompile("spec.versions[*].schema.openAPIV3Schema.properties.*.properties.*.**"),
		ChangeKinds:    []domain.ChangeKind{domain.ChangeItemAdded},
		ExcludeSegment: "required",
		Message:        pathMessage("New optional property added at '%s'"),
	},
	{
		Name:        "crd_version_removed",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.versions[*]"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeItemRemoved},
		Message:     staticMessage("CRD version removed"),
	},
	{
		Name:        "crd_required_field_added",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.required.**"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeItemAdded},
		Message:     pathMessage("New required field added at '%s'"),
	},
	{
		Name:        "crd_property_removed",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.properties.*"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeItemRemoved},
		Message:     pathMessage("Schema property removed at '%s'"),
	},
	{
		Name:        "crd_type_changed",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.properties.*.type"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message:     pathMessage("Property type changed at '%s'"),
	},
	{
		Name:        "crd_scope_changed",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.scope"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("CRD scope changed from '%v' to '%v'", fc.Old, fc.New)
		},
	},
	{
		Name:        "crd_conversion_strategy_changed",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.conversion.strategy"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message: func(fc domain.FieldChange) string {
			return fmt.Sprintf("Conversion strategy changed from '%v' to '%v'", fc.Old, fc.New)
		},
	},
	{
		Name:        "crd_default_changed",
		Level:       domain.RiskWarning,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.properties.*.default"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message:     pathMessage("Default value changed at '%s'"),
	},
	{
		Name:        "crd_pattern_changed",
		Level:       domain.RiskWarning,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.properties.*.pattern"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message:     pathMessage("Validation pattern changed at '%s'"),
	},
	{
		Name:        "crd_range_changed",
		Level:       domain.RiskWarning,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.properties.*.minimum"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message:     pathMessage("Validation range changed at '%s'"),
	},
	{
		Name:        "crd_range_changed",
		Level:       domain.RiskWarning,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.properties.*.maximum"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message:     pathMessage("Validation range changed at '%s'"),
	},
	{
		Name:    "crd_enum_changed",
		Level:   domain.RiskWarning,
		Pattern: pathmatch.MustCompile("spec.versions[*].schema.**.properties.*.enum.**"),
		Message: pathMessage("Enum values changed at '%s'"),
	},
	{
		Name:    "crd_webhook_changed",
		Level:   domain.RiskWarning,
		Pattern: pathmatch.MustCompile("spec.conversion.webhook.*.**"),
		Message: pathMessage("Conversion webhook configuration changed at '%s'"),
	},
	{
		Name:        "crd_required_field_removed",
		Level:       domain.RiskSafe,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.required.**"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeItemRemoved},
		Message:     pathMessage("Required field constraint removed at '%s'"),
	},
	{
		Name:        "crd_required_changed",
		Level:       domain.RiskDanger,
		Pattern:     pathmatch.MustCompile("spec.versions[*].schema.**.required.**"),
		ChangeKinds: []domain.ChangeKind{domain.ChangeValueChanged},
		Message:     pathMessage("Required fields changed at '%s'"),
	},
	{
		Name:    "crd_unknown_change",
		Level:   domain.RiskWarning,
		Pattern: pathmatch.MustCompile("**"),
		Message: pathMessage("Unknown CRD change at '%s'"),
	},
}

// ClassifyCRDChanges grades each change against CRDRules, one
// annotation per change.
func ClassifyCRDChanges(changes []domain.FieldChange) []domain.RiskAnnotation {
	out := make([]domain.RiskAnnotation, 0, len(changes))
	for _, fc := range changes {
		out = append(out, Classify(fc, domain.KindCustomResourceDefinition, CRDRules)...)
	}
	return out
}

func pathMessage(format string) func(domain.FieldChange) string {
	return func(fc domain.FieldChange) string {
		return fmt.Sprintf(format, fc.Path)
	}
}

func staticMessage(s string) func(domain.FieldChange) string {
	return func(domain.FieldChange) string {
		return s
	}
}
