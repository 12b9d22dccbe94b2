package manifest

import (
	"sort"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// Pair joins the live and proposed resource sets on ResourceKey. Keys
// only on the old side become removed, only on the new side added;
// keys on both sides start as changed and are finalized to unchanged
// by the diff step when nothing differs. Output order is stable across
// runs. Duplicate keys within one side keep the last document.
func Pair(oldResources, newResources []*domain.Resource) []domain.ResourcePair {
	oldByKey := make(map[domain.ResourceKey]*domain.Resource, len(oldResources))
	for _, r := range oldResources {
		oldByKey[r.Key] = r
	}
	newByKey := make(map[domain.ResourceKey]*domain.Resource, len(newResources))
	for _, r := range newResources {
		newByKey[r.Key] = r
	}

	keys := make([]domain.ResourceKey, 0, len(oldByKey)+len(newByKey))
	seen := make(map[domain.ResourceKey]struct{}, len(oldByKey)+len(newByKey))
	for _, r := range oldResources {
		if _, dup := seen[r.Key]; !dup {
			seen[r.Key] = struct{}{}
			keys = append(keys, r.Key)
		}
	}
	for _, r := range newResources {
		if _, dup := seen[r.Key]; !dup {
			seen[r.Key] = struct{}{}
			keys = append(keys, r.Key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	pairs := make([]domain.ResourcePair, 0, len(keys))
	for _, key := range keys {
		oldRes := oldByKey[key]
		newRes := newByKey[key]
		status := domain.StatusChanged
		switch {
		case oldRes == nil:
			status = domain.StatusAdded
		case newRes == nil:
			status = domain.StatusRemoved
		}
		pairs = append(pairs, domain.ResourcePair{
			Key:    key,
			Old:    oldRes,
			New:    newRes,
			Status: status,
		})
	}
	return pairs
}

// SplitCRDs partitions pairs into CustomResourceDefinition pairs and
// everything else, preserving order.
func SplitCRDs(pairs []domain.ResourcePair) (crds, rest []domain.ResourcePair) {
	for _, p := range pairs {
		if p.Current().IsCRD() {
			crds = append(crds, p)
		} else {
			rest = append(rest, p)
		}
	}
	return crds, rest
}
