package crd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/manifest"
)

const installedWidget = `
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
  annotations:
    meta.helm.sh/release-name: platform
status:
  storedVersions:
    - v1
    - v2beta1
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

// proposedWidget drops the v2beta1 version that installedWidget still
// stores objects under.
const proposedWidget = `
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
`

const gadgetCRD = `
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: gadgets.example.com
spec:
  group: example.com
  names:
    kind: Gadget
    plural: gadgets
  scope: Cluster
  versions:
    - name: v1alpha1
      served: true
      storage: true
`

func parseCRD(t *testing.T, text string) *domain.Resource {
	t.Helper()
	resources, err := manifest.Parse([]byte(text), "")
	require.NoError(t, err)
	require.Len(t, resources, 1)
	return resources[0]
}

func TestParseRecord(t *testing.T) {
	rec := ParseRecord(parseCRD(t, installedWidget))

	assert.Equal(t, "widgets.example.com", rec.Name)
	assert.Equal(t, "example.com", rec.Group)
	assert.Equal(t, "Widget", rec.Kind)
	assert.Equal(t, "widgets", rec.Plural)
	assert.Equal(t, "Namespaced", rec.Scope)
	assert.Equal(t, []string{"v1", "v2beta1"}, rec.VersionNames())
	assert.Equal(t, []string{"v1", "v2beta1"}, rec.StoredVersions)
	assert.Equal(t, "v1", rec.StorageVersion())

	require.Len(t, rec.Versions, 2)
	assert.True(t, rec.Versions[0].Served)
	assert.True(t, rec.Versions[0].Storage)
	assert.NotNil(t, rec.Versions[0].Schema)
	assert.False(t, rec.Versions[1].Storage)
	assert.Nil(t, rec.Versions[1].Schema)
}

func TestParseRecordSparse(t *testing.T) {
	rec := ParseRecord(parseCRD(t, `
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: bare.example.com
`))

	assert.Equal(t, "bare.example.com", rec.Name)
	assert.Empty(t, rec.Group)
	assert.Empty(t, rec.Versions)
	assert.Empty(t, rec.StoredVersions)
	assert.Empty(t, rec.StorageVersion())
}

func TestFromResources(t *testing.T) {
	docs, err := manifest.Parse([]byte(`
apiVersion: v1
kind: Service
metadata:
  name: web
---
apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: widgets.example.com
spec:
  group: example.com
`), "default")
	require.NoError(t, err)

	records := FromResources(docs)

	require.Len(t, records, 1)
	assert.Equal(t, "widgets.example.com", records[0].Name)
}

func TestFromChartDir(t *testing.T) {
	chart := t.TempDir()
	crdsDir := filepath.Join(chart, "crds")
	require.NoError(t, os.Mkdir(crdsDir, 0o755))

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(crdsDir, name), []byte(content), 0o644))
	}
	write("widgets.yaml", proposedWidget)
	write("gadgets.yml", gadgetCRD)
	write("notes.txt", "not a manifest")
	write("broken.yaml", "kind: [unbalanced")
	write("deployment.yaml", "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: web\n")

	records := FromChartDir(chart)

	require.Len(t, records, 2)
	assert.Equal(t, "gadgets.example.com", records[0].Name)
	assert.Equal(t, "widgets.example.com", records[1].Name)
}

func TestFromChartDirMissing(t *testing.T) {
	assert.Nil(t, FromChartDir(t.TempDir()))
}
