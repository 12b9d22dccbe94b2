// Package crd analyzes CustomResourceDefinition changes against
// cluster state: schema compatibility of live instances, stored-version
// safety, ownership conflicts, and upgrade policy.
package crd

import (
	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/pkg/convert"
)

// ParseRecord reads the structured CRD view out of a manifest
// document. Missing fields parse to zero values; the full body is kept
// for diffing and ownership checks.
func ParseRecord(res *domain.Resource) *domain.CRDRecord {
	rec := &domain.CRDRecord{
		Name:   res.Key.Name,
		Group:  convert.DigString(res.Body, "spec", "group"),
		Kind:   convert.DigString(res.Body, "spec", "names", "kind"),
		Plural: convert.DigString(res.Body, "spec", "names", "plural"),
		Scope:  convert.DigString(res.Body, "spec", "scope"),
		Body:   res.Body,
	}

	for _, v := range convert.DigSlice(res.Body, "spec", "versions") {
		vm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		name, _ := vm["name"].(string)
		served, _ := vm["served"].(bool)
		storage, _ := vm["storage"].(bool)
		rec.Versions = append(rec.Versions, domain.CRDVersion{
			Name:    name,
			Served:  served,
			Storage: storage,
			Schema:  convert.DigMap(vm, "schema", "openAPIV3Schema"),
		})
	}

	if stored, err := convert.ToSliceOfString(convert.DigSlice(res.Body, "status", "storedVersions")); err == nil && len(stored) > 0 {
		rec.StoredVersions = stored
	}
	return rec
}

// FromResources filters a document set down to its CRDs.
func FromResources(resources []*domain.Resource) []*domain.CRDRecord {
	var out []*domain.CRDRecord
	for _, r := range resources {
		if r.IsCRD() {
			out = append(out, ParseRecord(r))
		}
	}
	return out
}
