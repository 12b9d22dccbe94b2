package crd

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/risk"
)

// AnalysisInput bundles everything the pipeline consumes. All cluster
// data is fetched by the caller ahead of time; analysis itself does no
// I/O and is safe to run concurrently.
type AnalysisInput struct {
	// Proposed is the full upgrade render; non-CRD documents are
	// ignored here.
	Proposed []*domain.Resource
	// ChartCRDs come from the chart's crds/ directory; they fill in
	// definitions the render omits, matched by name.
	ChartCRDs     []*domain.CRDRecord
	Installed     domain.CRDFetch
	LiveInstances map[string]domain.InstanceFetch
	Release       string
	Policy        domain.PolicyMode
}

// WarnInstalledUnavailable is recorded when the installed-CRD listing
// could not be fetched.
const WarnInstalledUnavailable = "Could not retrieve installed CRDs from cluster " +
	"(permission denied or cluster unreachable). Comparing against empty set."

// Analyze runs the CRD compatibility pipeline: extract proposed CRDs,
// pair against the installed set, diff and classify each pair, check
// ownership, validate live instances against the proposed storage
// schema, flag dropped stored versions, and evaluate policy. Ignore
// mode suppresses all findings and reports only the policy decision.
func Analyze(in AnalysisInput) *domain.CRDReport {
	report := &domain.CRDReport{}

	if in.Policy == domain.PolicyIgnore {
		decision := EvaluatePolicy(report, in.Policy)
		report.Policy = &decision
		return report
	}

	proposed := MergeProposed(FromResources(in.Proposed), in.ChartCRDs)
	if len(proposed) == 0 {
		decision := EvaluatePolicy(report, in.Policy)
		report.Policy = &decision
		return report
	}

	if in.Installed.Unavailable {
		report.Warnings = append(report.Warnings, WarnInstalledUnavailable)
	}
	installed := relevantInstalled(FromResources(in.Installed.Resources), proposed)

	pairs := Pair(installed, proposed)

	for _, pd := range diffPairs(pairs) {
		change := domain.CRDChange{
			Name:   pd.pair.Name,
			Status: pd.pair.Status,
			Fields: pd.changes,
		}
		if len(pd.changes) > 0 {
			change.Risk = risk.ClassifyCRDChanges(pd.changes)
		}
		if pd.pair.Old != nil {
			change.OwnershipConflict = OwnershipConflict(pd.pair.Old, in.Release)
		}
		if pd.pair.Status == domain.StatusChanged {
			validateLive(&change, pd.pair.New, in.LiveInstances, report)
			change.StoredVersionWarnings = StoredVersionWarnings(pd.pair.Old, pd.pair.New)
		}
		report.CRDs = append(report.CRDs, change)
	}

	report.NewCRDs = detectNew(installed, proposed)

	decision := EvaluatePolicy(report, in.Policy)
	report.Policy = &decision
	return report
}

// validateLive checks live instances of a changed CRD against its
// proposed storage-version schema. Missing live data degrades to a
// pipeline warning, never a failure.
func validateLive(change *domain.CRDChange, proposed *domain.CRDRecord, live map[string]domain.InstanceFetch, report *domain.CRDReport) {
	if proposed.Plural == "" || proposed.Group == "" {
		return
	}

	inst, ok := live[proposed.Name]
	if !ok || inst.Unavailable {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Could not retrieve live instances of '%s' (permission denied or cluster unreachable). Schema validation skipped.",
			proposed.Name))
		return
	}
	if len(inst.Items) == 0 {
		return
	}

	storage := proposed.StorageVersion()
	if storage == "" {
		return
	}
	schema := SchemaForVersion(proposed, storage)
	if schema == nil {
		return
	}

	change.SchemaErrors = ValidateInstances(inst.Items, schema)
}

// MergeProposed combines the rendered CRDs with chart-directory ones,
// preferring the rendered definition when both exist (it may be
// templated). The engine uses the merged set to decide which live
// instance kinds to fetch.
func MergeProposed(rendered, chart []*domain.CRDRecord) []*domain.CRDRecord {
	seen := sets.New[string]()
	out := make([]*domain.CRDRecord, 0, len(rendered)+len(chart))
	for _, r := range rendered {
		seen.Insert(r.Name)
		out = append(out, r)
	}
	for _, c := range chart {
		if seen.Has(c.Name) {
			continue
		}
		seen.Insert(c.Name)
		out = append(out, c)
	}
	return out
}

// relevantInstalled keeps only installed CRDs the proposed set also
// names; the chart has no say over unrelated cluster CRDs.
func relevantInstalled(installed, proposed []*domain.CRDRecord) []*domain.CRDRecord {
	names := sets.New[string]()
	for _, r := range proposed {
		names.Insert(r.Name)
	}
	var out []*domain.CRDRecord
	for _, r := range installed {
		if names.Has(r.Name) {
			out = append(out, r)
		}
	}
	return out
}

// detectNew lists proposed CRDs with no installed counterpart. There
// is nothing to compare them against, so they are reported by
// identity only.
func detectNew(installed, proposed []*domain.CRDRecord) []domain.NewCRDInfo {
	have := sets.New[string]()
	for _, r := range installed {
		have.Insert(r.Name)
	}

	var out []domain.NewCRDInfo
	for _, r := range proposed {
		if have.Has(r.Name) {
			continue
		}
		have.Insert(r.Name)
		out = append(out, domain.NewCRDInfo{
			Name:     r.Name,
			Group:    r.Group,
			Kind:     r.Kind,
			Versions: r.VersionNames(),
		})
	}
	return out
}
