package diff

import (
	"sort"

	"github.com/google/go-cmp/cmp"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/pkg/pathmatch"
)

// Diff walks two normalized documents and returns every structural
// difference in pre-order path order, so identical inputs always yield
// byte-identical output. Map keys present on one side only become
// item_added/item_removed; sequences compare by index; scalar leaves
// compare semantically.
func Diff(oldDoc, newDoc map[string]any) []domain.FieldChange {
	var changes []domain.FieldChange
	diffMap(&changes, "", oldDoc, newDoc)
	return changes
}

func diffMap(changes *[]domain.FieldChange, path string, oldMap, newMap map[string]any) {
	keys := make([]string, 0, len(oldMap)+len(newMap))
	seen := make(map[string]struct{}, len(oldMap)+len(newMap))
	for k := range oldMap {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range newMap {
		if _, dup := seen[k]; !dup {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := pathmatch.Child(path, k)
		oldV, inOld := oldMap[k]
		newV, inNew := newMap[k]
		switch {
		case !inOld:
			*changes = append(*changes, domain.FieldChange{
				Path: childPath, New: newV, Kind: domain.ChangeItemAdded,
			})
		case !inNew:
			*changes = append(*changes, domain.FieldChange{
				Path: childPath, Old: oldV, Kind: domain.ChangeItemRemoved,
			})
		default:
			diffValue(changes, childPath, oldV, newV)
		}
	}
}

func diffSlice(changes *[]domain.FieldChange, path string, oldList, newList []any) {
	common := len(oldList)
	if len(newList) < common {
		common = len(newList)
	}
	for i := 0; i < common; i++ {
		diffValue(changes, pathmatch.Element(path, i), oldList[i], newList[i])
	}
	for i := common; i < len(oldList); i++ {
		*changes = append(*changes, domain.FieldChange{
			Path: pathmatch.Element(path, i), Old: oldList[i], Kind: domain.ChangeItemRemoved,
		})
	}
	for i := common; i < len(newList); i++ {
		*changes = append(*changes, domain.FieldChange{
			Path: pathmatch.Element(path, i), New: newList[i], Kind: domain.ChangeItemAdded,
		})
	}
}

func diffValue(changes *[]domain.FieldChange, path string, oldV, newV any) {
	if oldMap, ok := oldV.(map[string]any); ok {
		if newMap, ok := newV.(map[string]any); ok {
			diffMap(changes, path, oldMap, newMap)
			return
		}
	}
	if oldList, ok := oldV.([]any); ok {
		if newList, ok := newV.([]any); ok {
			diffSlice(changes, path, oldList, newList)
			return
		}
	}
	if isContainer(oldV) || isContainer(newV) {
		*changes = append(*changes, domain.FieldChange{
			Path: path, Old: oldV, New: newV, Kind: domain.ChangeTypeChanged,
		})
		return
	}
	if Equal(oldV, newV) {
		return
	}
	kind := domain.ChangeTypeChanged
	if sameClass(oldV, newV) {
		kind = domain.ChangeValueChanged
	}
	*changes = append(*changes, domain.FieldChange{
		Path: path, Old: oldV, New: newV, Kind: kind,
	})
}

// DiffAll normalizes and diffs every pair, finalizing each pair's
// status in place: a both-sides pair whose diff is empty becomes
// unchanged. One report per added, removed, or changed pair is
// returned; unchanged pairs produce none.
func DiffAll(pairs []domain.ResourcePair, ignores *pathmatch.Set) []domain.ResourceReport {
	reports := make([]domain.ResourceReport, 0, len(pairs))
	for i := range pairs {
		p := &pairs[i]
		switch {
		case p.Old == nil:
			reports = append(reports, domain.ResourceReport{
				Key:    p.Key,
				Status: domain.StatusAdded,
			})
		case p.New == nil:
			reports = append(reports, domain.ResourceReport{
				Key:    p.Key,
				Status: domain.StatusRemoved,
			})
		default:
			if cmp.Equal(p.Old.Body, p.New.Body) {
				p.Status = domain.StatusUnchanged
				continue
			}
			changes := Diff(
				Normalize(p.Old.Body, ignores),
				Normalize(p.New.Body, ignores),
			)
			if len(changes) == 0 {
				p.Status = domain.StatusUnchanged
				continue
			}
			p.Status = domain.StatusChanged
			reports = append(reports, domain.ResourceReport{
				Key:    p.Key,
				Status: domain.StatusChanged,
				Fields: changes,
			})
		}
	}
	return reports
}
