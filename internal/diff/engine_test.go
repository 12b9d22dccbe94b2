package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

func service(svcType string, port int64) map[string]any {
	return map[string]any{
		"apiVersion": "v1",
		"kind":       "Service",
		"metadata":   map[string]any{"name": "web", "namespace": "default"},
		"spec": map[string]any{
			"type": svcType,
			"ports": []any{
				map[string]any{"port": port, "protocol": "TCP"},
			},
		},
	}
}

func TestDiff(t *testing.T) {
	t.Run("reflexive", func(t *testing.T) {
		doc := service("ClusterIP", 80)
		assert.Empty(t, Diff(doc, doc))
	})

	t.Run("service type change", func(t *testing.T) {
		changes := Diff(service("ClusterIP", 80), service("NodePort", 80))
		require.Len(t, changes, 1)
		assert.Equal(t, "spec.type", changes[0].Path)
		assert.Equal(t, domain.ChangeValueChanged, changes[0].Kind)
		assert.Equal(t, "ClusterIP", changes[0].Old)
		assert.Equal(t, "NodePort", changes[0].New)
	})

	t.Run("replicas change", func(t *testing.T) {
		oldDoc := map[string]any{"spec": map[string]any{"replicas": int64(2)}}
		newDoc := map[string]any{"spec": map[string]any{"replicas": int64(5)}}
		changes := Diff(oldDoc, newDoc)
		require.Len(t, changes, 1)
		assert.Equal(t, "spec.replicas", changes[0].Path)
		assert.Equal(t, domain.ChangeValueChanged, changes[0].Kind)
	})

	t.Run("semantic scalar equality crosses types", func(t *testing.T) {
		oldDoc := map[string]any{"spec": map[string]any{"port": "80", "enabled": "true"}}
		newDoc := map[string]any{"spec": map[string]any{"port": int64(80), "enabled": true}}
		assert.Empty(t, Diff(oldDoc, newDoc))
	})

	t.Run("type change", func(t *testing.T) {
		oldDoc := map[string]any{"spec": map[string]any{"value": "eighty"}}
		newDoc := map[string]any{"spec": map[string]any{"value": int64(80)}}
		changes := Diff(oldDoc, newDoc)
		require.Len(t, changes, 1)
		assert.Equal(t, domain.ChangeTypeChanged, changes[0].Kind)
	})

	t.Run("container replaced by scalar", func(t *testing.T) {
		oldDoc := map[string]any{"spec": map[string]any{"selector": map[string]any{"app": "web"}}}
		newDoc := map[string]any{"spec": map[string]any{"selector": "app=web"}}
		changes := Diff(oldDoc, newDoc)
		require.Len(t, changes, 1)
		assert.Equal(t, "spec.selector", changes[0].Path)
		assert.Equal(t, domain.ChangeTypeChanged, changes[0].Kind)
	})

	t.Run("map key added and removed", func(t *testing.T) {
		oldDoc := map[string]any{"data": map[string]any{"removed": "x", "kept": "1"}}
		newDoc := map[string]any{"data": map[string]any{"added": "y", "kept": "1"}}
		changes := Diff(oldDoc, newDoc)
		require.Len(t, changes, 2)
		assert.Equal(t, "data.added", changes[0].Path)
		assert.Equal(t, domain.ChangeItemAdded, changes[0].Kind)
		assert.Equal(t, "y", changes[0].New)
		assert.Equal(t, "data.removed", changes[1].Path)
		assert.Equal(t, domain.ChangeItemRemoved, changes[1].Kind)
		assert.Equal(t, "x", changes[1].Old)
	})

	t.Run("sequence growth and shrink", func(t *testing.T) {
		oldDoc := map[string]any{"spec": map[string]any{"args": []any{"a", "b", "c"}}}
		newDoc := map[string]any{"spec": map[string]any{"args": []any{"a", "x"}}}
		changes := Diff(oldDoc, newDoc)
		require.Len(t, changes, 2)
		assert.Equal(t, "spec.args[1]", changes[0].Path)
		assert.Equal(t, domain.ChangeValueChanged, changes[0].Kind)
		assert.Equal(t, "spec.args[2]", changes[1].Path)
		assert.Equal(t, domain.ChangeItemRemoved, changes[1].Kind)
	})

	t.Run("nested recursion", func(t *testing.T) {
		oldDoc := map[string]any{
			"spec": map[string]any{
				"template": map[string]any{
					"spec": map[string]any{
						"containers": []any{
							map[string]any{"name": "app", "image": "nginx:1.25"},
						},
					},
				},
			},
		}
		newDoc := map[string]any{
			"spec": map[string]any{
				"template": map[string]any{
					"spec": map[string]any{
						"containers": []any{
							map[string]any{"name": "app", "image": "nginx:1.26"},
						},
					},
				},
			},
		}
		changes := Diff(oldDoc, newDoc)
		require.Len(t, changes, 1)
		assert.Equal(t, "spec.template.spec.containers[0].image", changes[0].Path)
	})

	t.Run("deterministic ordering", func(t *testing.T) {
		oldDoc := map[string]any{"z": "1", "a": "1", "m": map[string]any{"k": "1"}}
		newDoc := map[string]any{"z": "2", "a": "2", "m": map[string]any{"k": "2"}}
		first := Diff(oldDoc, newDoc)
		second := Diff(oldDoc, newDoc)
		assert.Equal(t, first, second)
		require.Len(t, first, 3)
		assert.Equal(t, "a", first[0].Path)
		assert.Equal(t, "m.k", first[1].Path)
		assert.Equal(t, "z", first[2].Path)
	})

	t.Run("unique paths per diff", func(t *testing.T) {
		oldDoc := service("ClusterIP", 80)
		newDoc := service("LoadBalancer", 8443)
		seen := map[string]int{}
		for _, c := range Diff(oldDoc, newDoc) {
			seen[c.Path]++
		}
		for path, n := range seen {
			assert.Equal(t, 1, n, "path %s", path)
		}
	})
}

func TestDiffAll(t *testing.T) {
	ignores := defaultIgnores(t)

	oldRes := &domain.Resource{
		Key:  domain.ResourceKey{APIVersion: "v1", Kind: "Service", Namespace: "default", Name: "web"},
		Body: service("ClusterIP", 80),
	}
	sameRes := &domain.Resource{
		Key:  oldRes.Key,
		Body: service("ClusterIP", 80),
	}
	changedRes := &domain.Resource{
		Key:  oldRes.Key,
		Body: service("NodePort", 80),
	}
	extraKey := domain.ResourceKey{APIVersion: "v1", Kind: "ConfigMap", Namespace: "default", Name: "cfg"}

	t.Run("unchanged pair is finalized and omitted", func(t *testing.T) {
		pairs := []domain.ResourcePair{
			{Key: oldRes.Key, Old: oldRes, New: sameRes, Status: domain.StatusChanged},
		}
		reports := DiffAll(pairs, ignores)
		assert.Empty(t, reports)
		assert.Equal(t, domain.StatusUnchanged, pairs[0].Status)
	})

	t.Run("changed pair keeps fields", func(t *testing.T) {
		pairs := []domain.ResourcePair{
			{Key: oldRes.Key, Old: oldRes, New: changedRes, Status: domain.StatusChanged},
		}
		reports := DiffAll(pairs, ignores)
		require.Len(t, reports, 1)
		assert.Equal(t, domain.StatusChanged, reports[0].Status)
		require.Len(t, reports[0].Fields, 1)
		assert.Equal(t, "spec.type", reports[0].Fields[0].Path)
	})

	t.Run("added and removed have no fields", func(t *testing.T) {
		pairs := []domain.ResourcePair{
			{Key: extraKey, New: sameRes, Status: domain.StatusAdded},
			{Key: oldRes.Key, Old: oldRes, Status: domain.StatusRemoved},
		}
		reports := DiffAll(pairs, ignores)
		require.Len(t, reports, 2)
		assert.Equal(t, domain.StatusAdded, reports[0].Status)
		assert.Empty(t, reports[0].Fields)
		assert.Equal(t, domain.StatusRemoved, reports[1].Status)
		assert.Empty(t, reports[1].Fields)
	})

	t.Run("noise-only difference is unchanged", func(t *testing.T) {
		noisy := service("ClusterIP", 80)
		noisy["status"] = map[string]any{"loadBalancer": map[string]any{"ingress": []any{}}}
		noisy["metadata"].(map[string]any)["resourceVersion"] = "999"
		noisyRes := &domain.Resource{Key: oldRes.Key, Body: noisy}

		pairs := []domain.ResourcePair{
			{Key: oldRes.Key, Old: oldRes, New: noisyRes, Status: domain.StatusChanged},
		}
		reports := DiffAll(pairs, ignores)
		assert.Empty(t, reports)
		assert.Equal(t, domain.StatusUnchanged, pairs[0].Status)
	})
}
