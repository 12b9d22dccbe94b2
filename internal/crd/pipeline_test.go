package crd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// unchangedWidget matches installedWidget once bookkeeping noise is
// stripped: no annotations, no status, same spec.
const unchangedWidget = `
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
spec:
  group: example.com
  names:
    kind: Widget
    plural: widgets
  scope: Namespaced
  versions:
    - name: v1
      served: true
      storage: true
      schema:
        openAPIV3Schema:
          type: object
          properties:
            spec:
              type: object
              properties:
                size:
                  type: integer
                  minimum: 1
              required:
                - size
    - name: v2beta1
      served: true
      storage: false
`

func widgetInput(t *testing.T) AnalysisInput {
	t.Helper()
	return AnalysisInput{
		Proposed:  []*domain.Resource{parseCRD(t, proposedWidget)},
		Installed: domain.CRDFetch{Resources: []*domain.Resource{parseCRD(t, installedWidget)}},
		LiveInstances: map[string]domain.InstanceFetch{
			"widgets.example.com": {},
		},
		Release: "platform",
		Policy:  domain.PolicyFail,
	}
}

func TestAnalyzeNoProposedCRDs(t *testing.T) {
	service := parseCRD(t, "apiVersion: v1\nkind: Service\nmetadata:\n  name: web\n")

	report := Analyze(AnalysisInput{
		Proposed: []*domain.Resource{service},
		Policy:   domain.PolicyWarn,
	})

	assert.Empty(t, report.CRDs)
	assert.Empty(t, report.NewCRDs)
	assert.Empty(t, report.Warnings)
	require.NotNil(t, report.Policy)
	assert.Equal(t, "CRD policy: warn (no issues found)", report.Policy.Message)
}

func TestAnalyzeNewCRD(t *testing.T) {
	report := Analyze(AnalysisInput{
		Proposed: []*domain.Resource{parseCRD(t, gadgetCRD)},
		Policy:   domain.PolicyWarn,
	})

	require.Len(t, report.CRDs, 1)
	change := report.CRDs[0]
	assert.Equal(t, "gadgets.example.com", change.Name)
	assert.Equal(t, domain.StatusAdded, change.Status)
	assert.Empty(t, change.Fields)
	assert.Empty(t, change.Risk)
	assert.Empty(t, change.OwnershipConflict)

	require.Len(t, report.NewCRDs, 1)
	assert.Equal(t, domain.NewCRDInfo{
		Name:     "gadgets.example.com",
		Group:    "example.com",
		Kind:     "Gadget",
		Versions: []string{"v1alpha1"},
	}, report.NewCRDs[0])

	// An empty installed listing is a real answer, not a fetch failure.
	assert.Empty(t, report.Warnings)
}

func TestAnalyzeVersionRemoval(t *testing.T) {
	report := Analyze(widgetInput(t))

	require.Len(t, report.CRDs, 1)
	change := report.CRDs[0]
	assert.Equal(t, "widgets.example.com", change.Name)
	assert.Equal(t, domain.StatusChanged, change.Status)

	require.Len(t, change.Fields, 1)
	assert.Equal(t, "spec.versions[1]", change.Fields[0].Path)
	assert.Equal(t, domain.ChangeItemRemoved, change.Fields[0].Kind)

	require.Len(t, change.Risk, 1)
	assert.Equal(t, "crd_version_removed", change.Risk[0].Rule)
	assert.Equal(t, domain.RiskDanger, change.MaxRisk())

	assert.Empty(t, change.OwnershipConflict)
	require.Len(t, change.StoredVersionWarnings, 1)
	assert.Contains(t, change.StoredVersionWarnings[0], "Stored version 'v2beta1'")
	assert.Empty(t, change.SchemaErrors)

	assert.Empty(t, report.Warnings)
	assert.Empty(t, report.NewCRDs)
	require.NotNil(t, report.Policy)
	assert.True(t, report.Policy.Blocked)
	assert.Equal(t, "CRD policy: fail - 1 CRD(s) with DANGER-level changes: widgets.example.com", report.Policy.Message)
}

func TestAnalyzeOwnershipConflict(t *testing.T) {
	in := widgetInput(t)
	in.Release = "other"

	report := Analyze(in)

	require.Len(t, report.CRDs, 1)
	assert.Equal(t,
		"CRD 'widgets.example.com' is owned by Helm release 'platform', not the current release 'other'",
		report.CRDs[0].OwnershipConflict)
}

func TestAnalyzeInstalledUnavailable(t *testing.T) {
	report := Analyze(AnalysisInput{
		Proposed:  []*domain.Resource{parseCRD(t, proposedWidget)},
		Installed: domain.CRDFetch{Unavailable: true},
		Policy:    domain.PolicyWarn,
	})

	assert.Equal(t, []string{WarnInstalledUnavailable}, report.Warnings)

	// With nothing to compare against the widget counts as new.
	require.Len(t, report.CRDs, 1)
	assert.Equal(t, domain.StatusAdded, report.CRDs[0].Status)
	require.Len(t, report.NewCRDs, 1)
	assert.Equal(t, "widgets.example.com", report.NewCRDs[0].Name)
}

func TestAnalyzeLiveInstancesUnavailable(t *testing.T) {
	wantWarning := "Could not retrieve live instances of 'widgets.example.com' " +
		"(permission denied or cluster unreachable). Schema validation skipped."

	t.Run("no entry for the CRD", func(t *testing.T) {
		in := widgetInput(t)
		in.LiveInstances = nil

		report := Analyze(in)

		assert.Equal(t, []string{wantWarning}, report.Warnings)
		require.Len(t, report.CRDs, 1)
		assert.Empty(t, report.CRDs[0].SchemaErrors)
	})

	t.Run("entry marked unavailable", func(t *testing.T) {
		in := widgetInput(t)
		in.LiveInstances = map[string]domain.InstanceFetch{
			"widgets.example.com": {Unavailable: true},
		}

		report := Analyze(in)

		assert.Equal(t, []string{wantWarning}, report.Warnings)
	})
}

func TestAnalyzeSchemaErrors(t *testing.T) {
	in := widgetInput(t)
	in.LiveInstances = map[string]domain.InstanceFetch{
		"widgets.example.com": {Items: []map[string]any{
			{
				"apiVersion": "example.com/v1",
				"kind":       "Widget",
				"metadata":   map[string]any{"name": "broken", "namespace": "default"},
				"spec":       map[string]any{"size": "big"},
			},
			{
				"apiVersion": "example.com/v1",
				"kind":       "Widget",
				"metadata":   map[string]any{"name": "empty", "namespace": "default"},
				"spec":       map[string]any{},
			},
		}},
	}

	report := Analyze(in)

	require.Len(t, report.CRDs, 1)
	assert.Equal(t, []string{
		"default/broken: At 'spec.size': expected type 'integer', got 'string'",
		"default/empty: At 'spec': missing required field 'size'",
	}, report.CRDs[0].SchemaErrors)
	assert.Empty(t, report.Warnings)
}

func TestAnalyzeIgnoreMode(t *testing.T) {
	in := widgetInput(t)
	in.Policy = domain.PolicyIgnore

	report := Analyze(in)

	assert.Empty(t, report.CRDs)
	assert.Empty(t, report.NewCRDs)
	assert.Empty(t, report.Warnings)
	require.NotNil(t, report.Policy)
	assert.False(t, report.Policy.Blocked)
	assert.Equal(t, "CRD policy: ignore (all CRD issues suppressed)", report.Policy.Message)
}

func TestAnalyzeNoiseOnlyChange(t *testing.T) {
	report := Analyze(AnalysisInput{
		Proposed:  []*domain.Resource{parseCRD(t, unchangedWidget)},
		Installed: domain.CRDFetch{Resources: []*domain.Resource{parseCRD(t, installedWidget)}},
		Release:   "platform",
		Policy:    domain.PolicyFail,
	})

	assert.Empty(t, report.CRDs)
	assert.Empty(t, report.NewCRDs)
	assert.Empty(t, report.Warnings)
	require.NotNil(t, report.Policy)
	assert.False(t, report.Policy.Blocked)
	assert.Equal(t, "CRD policy: fail (passed) - no issues found", report.Policy.Message)
}

func TestAnalyzeChartCRDsMerge(t *testing.T) {
	report := Analyze(AnalysisInput{
		Proposed: []*domain.Resource{parseCRD(t, proposedWidget)},
		ChartCRDs: []*domain.CRDRecord{
			ParseRecord(parseCRD(t, unchangedWidget)),
			ParseRecord(parseCRD(t, gadgetCRD)),
		},
		Policy: domain.PolicyWarn,
	})

	// Paired changes come back sorted by CRD name.
	require.Len(t, report.CRDs, 2)
	assert.Equal(t, "gadgets.example.com", report.CRDs[0].Name)
	assert.Equal(t, "widgets.example.com", report.CRDs[1].Name)

	// The rendered widget wins over the chart-directory duplicate, so
	// new-CRD order follows the proposed set: rendered first.
	require.Len(t, report.NewCRDs, 2)
	assert.Equal(t, "widgets.example.com", report.NewCRDs[0].Name)
	assert.Equal(t, "gadgets.example.com", report.NewCRDs[1].Name)
}
