package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

func res(kind, namespace, name string) *domain.Resource {
	return &domain.Resource{
		Key: domain.ResourceKey{
			APIVersion: "v1",
			Kind:       kind,
			Namespace:  namespace,
			Name:       name,
		},
		Body: map[string]any{"kind": kind},
	}
}

func TestPair(t *testing.T) {
	t.Run("statuses follow presence", func(t *testing.T) {
		oldSet := []*domain.Resource{
			res("Service", "default", "web"),
			res("ConfigMap", "default", "settings"),
		}
		newSet := []*domain.Resource{
			res("Service", "default", "web"),
			res("Secret", "default", "credentials"),
		}

		pairs := Pair(oldSet, newSet)
		require.Len(t, pairs, 3)

		byKind := map[string]domain.ResourcePair{}
		for _, p := range pairs {
			byKind[p.Key.Kind] = p
		}

		assert.Equal(t, domain.StatusRemoved, byKind["ConfigMap"].Status)
		assert.Nil(t, byKind["ConfigMap"].New)

		assert.Equal(t, domain.StatusAdded, byKind["Secret"].Status)
		assert.Nil(t, byKind["Secret"].Old)

		assert.Equal(t, domain.StatusChanged, byKind["Service"].Status,
			"both sides present starts changed until diffed")
		assert.NotNil(t, byKind["Service"].Old)
		assert.NotNil(t, byKind["Service"].New)
	})

	t.Run("every key appears exactly once", func(t *testing.T) {
		oldSet := []*domain.Resource{res("A", "x", "1"), res("B", "x", "1")}
		newSet := []*domain.Resource{res("B", "x", "1"), res("C", "x", "1")}

		pairs := Pair(oldSet, newSet)
		require.Len(t, pairs, 3)
		seen := map[domain.ResourceKey]int{}
		for _, p := range pairs {
			seen[p.Key]++
		}
		for key, n := range seen {
			assert.Equal(t, 1, n, "key %s", key)
		}
	})

	t.Run("deterministic order", func(t *testing.T) {
		oldSet := []*domain.Resource{
			res("Service", "b", "s"),
			res("Deployment", "a", "d"),
		}
		newSet := []*domain.Resource{
			res("Deployment", "a", "d"),
			res("ConfigMap", "a", "c"),
		}

		first := Pair(oldSet, newSet)
		second := Pair(newSet, oldSet)
		require.Len(t, first, 3)
		for i := range first {
			assert.Equal(t, first[i].Key, second[i].Key)
		}
		assert.Equal(t, "ConfigMap", first[0].Key.Kind)
		assert.Equal(t, "Deployment", first[1].Key.Kind)
		assert.Equal(t, "Service", first[2].Key.Kind)
	})

	t.Run("duplicate keys keep last document", func(t *testing.T) {
		a := res("ConfigMap", "default", "settings")
		a.Body["data"] = "first"
		b := res("ConfigMap", "default", "settings")
		b.Body["data"] = "second"

		pairs := Pair([]*domain.Resource{a, b}, nil)
		require.Len(t, pairs, 1)
		assert.Equal(t, "second", pairs[0].Old.Body["data"])
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, Pair(nil, nil))
	})
}

func TestSplitCRDs(t *testing.T) {
	crd := &domain.Resource{
		Key: domain.ResourceKey{
			APIVersion: "apiextensions.k8s.io/v1",
			Kind:       domain.KindCustomResourceDefinition,
			Namespace:  "default",
			Name:       "widgets.example.io",
		},
		Body: map[string]any{},
	}
	pairs := Pair([]*domain.Resource{crd, res("Service", "default", "web")}, nil)

	crds, rest := SplitCRDs(pairs)
	require.Len(t, crds, 1)
	require.Len(t, rest, 1)
	assert.Equal(t, "widgets.example.io", crds[0].Key.Name)
	assert.Equal(t, "Service", rest[0].Key.Kind)
}
