package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chartsafe/helm-preview/internal/config"
	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
	"github.com/chartsafe/helm-preview/internal/core/service"
	apperrors "github.com/chartsafe/helm-preview/internal/errors"
	"github.com/chartsafe/helm-preview/internal/log"
	"github.com/chartsafe/helm-preview/internal/manifest"
	"github.com/chartsafe/helm-preview/mocks"
)

const liveManifest = `---
# Source: app/templates/configmap.yaml
apiVersion: v1
kind: ConfigMap
metadata:
  name: app-config
  namespace: default
  labels:
    app.kubernetes.io/managed-by: Helm
    helm.sh/chart: app-1.0.0
  annotations:
    meta.helm.sh/release-name: platform
data:
  timeout: "30"
---
apiVersion: v1
kind: Secret
metadata:
  name: app-secret
  namespace: default
type: Opaque
stringData:
  token: abc
`

const proposedManifest = `---
apiVersion: v1
kind: ConfigMap
metadata:
  name: app-config
  namespace: default
  labels:
    app.kubernetes.io/managed-by: Helm
    helm.sh/chart: app-1.1.0
  annotations:
    meta.helm.sh/release-name: platform
data:
  timeout: "60"
---
apiVersion: v1
kind: Secret
metadata:
  name: app-secret
  namespace: default
type: Opaque
stringData:
  token: abc
---
apiVersion: v1
kind: Service
metadata:
  name: app
  namespace: default
spec:
  ports:
    - port: 80
`

const installedWidgetCRD = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
  annotations:
    meta.helm.sh/release-name: platform
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
              required:
                - size
              properties:
                size:
                  type: integer
    - name: v2beta1
      served: false
      storage: false
status:
  storedVersions:
    - v1
    - v2beta1
`

const proposedWidgetCRD = `apiVersion: apiextensions.k8s.io/v1
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
              required:
                - size
              properties:
                size:
                  type: integer
`

func newEngine(t *testing.T, cfg *config.Config, source *mocks.MockReleaseSource, cluster *mocks.MockClusterReader, reporter *mocks.MockReporter) *service.PreviewEngine {
	t.Helper()
	engine, err := service.NewPreviewEngine(source, cluster, reporter, log.NewNop(), cfg, "platform", "./charts/app")
	require.NoError(t, err)
	return engine
}

func TestNewPreviewEngineValidation(t *testing.T) {
	cfg := config.DefaultConfig()
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)
	logger := log.NewNop()

	_, err := service.NewPreviewEngine(nil, cluster, reporter, logger, cfg, "platform", "./chart")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	_, err = service.NewPreviewEngine(source, nil, reporter, logger, cfg, "platform", "./chart")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	_, err = service.NewPreviewEngine(source, cluster, nil, logger, cfg, "platform", "./chart")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	_, err = service.NewPreviewEngine(source, cluster, reporter, logger, nil, "platform", "./chart")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	_, err = service.NewPreviewEngine(source, cluster, reporter, logger, cfg, "", "./chart")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	_, err = service.NewPreviewEngine(source, cluster, reporter, logger, cfg, "platform", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))

	engine, err := service.NewPreviewEngine(source, cluster, reporter, logger, cfg, "platform", "./chart")
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestRunDiffsLiveAgainstProposed(t *testing.T) {
	cfg := config.DefaultConfig()
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return(liveManifest, nil)
	source.On("RenderUpgrade", mock.Anything, mock.MatchedBy(func(req ports.UpgradeRequest) bool {
		return req.Release == "platform" && req.Chart == "./charts/app" && req.Namespace == "default"
	})).Return(proposedManifest, nil)

	var handed *domain.PreviewReport
	reporter.On("Report", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		handed = args.Get(1).(*domain.PreviewReport)
	}).Return(nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Same(t, report, handed, "the reporter receives the returned report")

	assert.Equal(t, domain.Summary{Added: 1, Changed: 1, Unchanged: 1}, report.Summary)
	assert.Equal(t, domain.RiskSummary{Safe: 2}, report.RiskSummary)
	require.Len(t, report.Changes, 2)

	configMap := report.Changes[0]
	assert.Equal(t, "ConfigMap/default/app-config", configMap.Key.String())
	assert.Equal(t, domain.StatusChanged, configMap.Status)
	require.Len(t, configMap.Fields, 1, "chart label churn is filtered as noise")
	assert.Equal(t, "data.timeout", configMap.Fields[0].Path)
	assert.Equal(t, "30", configMap.Fields[0].Old)
	assert.Equal(t, "60", configMap.Fields[0].New)
	assert.Equal(t, domain.ManagerHelm, configMap.Ownership.Manager)
	assert.Equal(t, "platform", configMap.Ownership.Release)

	svc := report.Changes[1]
	assert.Equal(t, "Service/default/app", svc.Key.String())
	assert.Equal(t, domain.StatusAdded, svc.Status)
	assert.Equal(t, domain.ManagerUnknown, svc.Ownership.Manager)

	assert.Nil(t, report.CRD)
	cluster.AssertNotCalled(t, "InstalledCRDs", mock.Anything)
}

func TestRunShowAllKeepsNoise(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Diff.ShowAll = true
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	live := `apiVersion: v1
kind: ConfigMap
metadata:
  name: app-config
  namespace: default
  labels:
    helm.sh/chart: app-1.0.0
data:
  timeout: "30"
`
	proposed := strings.Replace(live, "app-1.0.0", "app-1.1.0", 1)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return(live, nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(proposed, nil)
	reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Summary{Changed: 1}, report.Summary)
	require.Len(t, report.Changes, 1)
	require.Len(t, report.Changes[0].Fields, 1)
	assert.Equal(t, `metadata.labels.helm\.sh/chart`, report.Changes[0].Fields[0].Path)
}

func TestRunHelmFailurePropagates(t *testing.T) {
	cfg := config.DefaultConfig()
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	source.On("LiveManifest", mock.Anything, "platform", "default").
		Return("", apperrors.NewUserFacing(apperrors.CodeHelmCommand,
			"helm get manifest failed", "Check that the release exists in the namespace."))
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(proposedManifest, nil).Maybe()

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeHelmCommand))
	reporter.AssertNotCalled(t, "Report", mock.Anything, mock.Anything)
}

func TestRunRejectsBadIgnorePath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Diff.IgnorePaths = []string{"spec.ports["}
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return("", nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return("", nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	_, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodePathPattern))
	reporter.AssertNotCalled(t, "Report", mock.Anything, mock.Anything)
}

func TestRunServerSideMutation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Diff.ServerSide = true
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	live := `---
apiVersion: v1
kind: ConfigMap
metadata:
  name: app-config
  namespace: default
data:
  timeout: "30"
---
apiVersion: v1
kind: Service
metadata:
  name: app
  namespace: default
spec:
  ports:
    - port: 80
`

	mutatedConfigMap := `apiVersion: v1
kind: ConfigMap
metadata:
  name: app-config
  namespace: default
data:
  timeout: "45"
`

	source.On("LiveManifest", mock.Anything, "platform", "default").Return(live, nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(live, nil)
	cluster.On("ServerDryRun", mock.Anything, mock.MatchedBy(func(doc string) bool {
		return strings.Contains(doc, "app-config")
	})).Return(mutatedConfigMap, nil)
	cluster.On("ServerDryRun", mock.Anything, mock.MatchedBy(func(doc string) bool {
		return strings.Contains(doc, "kind: Service")
	})).Return("", apperrors.New(apperrors.CodeKubectlCommand, "dry run rejected"))
	reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Summary{Changed: 1, Unchanged: 1}, report.Summary,
		"a failed dry-run keeps the rendered document")
	require.Len(t, report.Changes, 1)
	require.Len(t, report.Changes[0].Fields, 1)
	assert.Equal(t, "data.timeout", report.Changes[0].Fields[0].Path)
	assert.Equal(t, "30", report.Changes[0].Fields[0].Old)
	assert.Equal(t, "45", report.Changes[0].Fields[0].New)
}

func TestRunCRDAnalysis(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CRD.Enabled = true
	cfg.CRD.Policy = domain.PolicyFail
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	installedResources, err := manifest.Parse([]byte(installedWidgetCRD), "default")
	require.NoError(t, err)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return("", nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(proposedWidgetCRD, nil)
	cluster.On("InstalledCRDs", mock.Anything).Return(domain.CRDFetch{Resources: installedResources})
	cluster.On("CustomResources", mock.Anything, "widgets", "example.com").Return(domain.InstanceFetch{
		Items: []map[string]any{
			{
				"metadata": map[string]any{"name": "broken", "namespace": "default"},
				"spec":     map[string]any{"size": "big"},
			},
		},
	})
	reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Changes, "CRD documents are excluded from the generic diff")
	assert.Equal(t, domain.Summary{}, report.Summary)

	require.NotNil(t, report.CRD)
	require.Len(t, report.CRD.CRDs, 1)
	change := report.CRD.CRDs[0]
	assert.Equal(t, "widgets.example.com", change.Name)
	assert.Equal(t, domain.RiskDanger, change.MaxRisk())
	assert.NotEmpty(t, change.StoredVersionWarnings)
	require.Len(t, change.SchemaErrors, 1)
	assert.Contains(t, change.SchemaErrors[0], "expected type 'integer', got 'string'")

	require.NotNil(t, report.CRD.Policy)
	assert.True(t, report.CRD.Policy.Blocked)
	assert.True(t, report.Blocked())

	cluster.AssertCalled(t, "CustomResources", mock.Anything, "widgets", "example.com")
}

func TestRunCRDAnalysisDisabledKeepsCRDsInDiff(t *testing.T) {
	cfg := config.DefaultConfig()
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return("", nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(proposedWidgetCRD, nil)
	reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, report.CRD)
	assert.Equal(t, domain.Summary{Added: 1}, report.Summary)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, domain.KindCustomResourceDefinition, report.Changes[0].Key.Kind)
	cluster.AssertNotCalled(t, "InstalledCRDs", mock.Anything)
	cluster.AssertNotCalled(t, "CustomResources", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCRDIgnorePolicySkipsClusterReads(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CRD.Enabled = true
	cfg.CRD.Policy = domain.PolicyIgnore
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return("", nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(proposedWidgetCRD, nil)
	reporter.On("Report", mock.Anything, mock.Anything).Return(nil)

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Changes, "CRD documents stay out of the generic diff")
	require.NotNil(t, report.CRD)
	assert.Empty(t, report.CRD.CRDs)
	require.NotNil(t, report.CRD.Policy)
	assert.False(t, report.CRD.Policy.Blocked)
	assert.False(t, report.Blocked())
	cluster.AssertNotCalled(t, "InstalledCRDs", mock.Anything)
	cluster.AssertNotCalled(t, "CustomResources", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunReporterFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	source := new(mocks.MockReleaseSource)
	cluster := new(mocks.MockClusterReader)
	reporter := new(mocks.MockReporter)

	source.On("LiveManifest", mock.Anything, "platform", "default").Return(liveManifest, nil)
	source.On("RenderUpgrade", mock.Anything, mock.Anything).Return(proposedManifest, nil)
	reporter.On("Report", mock.Anything, mock.Anything).
		Return(apperrors.New(apperrors.CodeRenderError, "broken pipe"))

	engine := newEngine(t, cfg, source, cluster, reporter)
	report, err := engine.Run(context.Background())
	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeRenderError))
}
