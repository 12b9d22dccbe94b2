package crd

import (
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/diff"
	"github.com/chartsafe/helm-preview/pkg/pathmatch"
)

// crdIgnores strips server bookkeeping plus CRD-specific noise (the
// status subtree carries storedVersions, conversion webhooks carry
// server-injected CA bundles) before diffing.
var crdIgnores = func() *pathmatch.Set {
	s, err := pathmatch.CompileSet(diff.CRDNoisePaths)
	if err != nil {
		panic(err)
	}
	return s
}()

// Pair joins installed and proposed CRDs by metadata.name. Bodies that
// are deeply equal pair as unchanged; both-present pairs otherwise
// start as changed until diffed. Output is sorted by name so reports
// are reproducible.
func Pair(installed, proposed []*domain.CRDRecord) []domain.CRDPair {
	oldByName := make(map[string]*domain.CRDRecord, len(installed))
	for _, r := range installed {
		oldByName[r.Name] = r
	}
	newByName := make(map[string]*domain.CRDRecord, len(proposed))
	for _, r := range proposed {
		newByName[r.Name] = r
	}

	nameSet := make(map[string]struct{}, len(oldByName)+len(newByName))
	for name := range oldByName {
		nameSet[name] = struct{}{}
	}
	for name := range newByName {
		nameSet[name] = struct{}{}
	}
	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]domain.CRDPair, 0, len(names))
	for _, name := range names {
		oldRec := oldByName[name]
		newRec := newByName[name]
		switch {
		case oldRec == nil:
			pairs = append(pairs, domain.CRDPair{Name: name, New: newRec, Status: domain.StatusAdded})
		case newRec == nil:
			pairs = append(pairs, domain.CRDPair{Name: name, Old: oldRec, Status: domain.StatusRemoved})
		case cmp.Equal(oldRec.Body, newRec.Body):
			pairs = append(pairs, domain.CRDPair{Name: name, Old: oldRec, New: newRec, Status: domain.StatusUnchanged})
		default:
			pairs = append(pairs, domain.CRDPair{Name: name, Old: oldRec, New: newRec, Status: domain.StatusChanged})
		}
	}
	return pairs
}

type pairDiff struct {
	pair    domain.CRDPair
	changes []domain.FieldChange
}

// diffPairs keeps the pairs worth reporting: added and removed CRDs
// with no field changes, changed CRDs with their noise-filtered diff.
// Pairs whose differences are all noise drop out, as do unchanged
// ones.
func diffPairs(pairs []domain.CRDPair) []pairDiff {
	var out []pairDiff
	for _, p := range pairs {
		switch p.Status {
		case domain.StatusAdded, domain.StatusRemoved:
			out = append(out, pairDiff{pair: p})
		case domain.StatusChanged:
			oldNorm := diff.Normalize(p.Old.Body, crdIgnores)
			newNorm := diff.Normalize(p.New.Body, crdIgnores)
			if changes := diff.Diff(oldNorm, newNorm); len(changes) > 0 {
				out = append(out, pairDiff{pair: p, changes: changes})
			}
		}
	}
	return out
}
