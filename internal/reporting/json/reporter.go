// Package json renders the preview report as structured JSON for
// CI/CD consumption.
package json

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
	apperrors "github.com/chartsafe/helm-preview/internal/errors"
)

const ReporterTypeJSON = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct{}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

type reportDoc struct {
	Summary     summaryDoc      `json:"summary"`
	RiskSummary riskSummaryDoc  `json:"risk_summary"`
	Changes     []changeDoc     `json:"changes"`
	CRDAnalysis *crdAnalysisDoc `json:"crd_analysis,omitempty"`
}

type summaryDoc struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
}

type riskSummaryDoc struct {
	Safe    int `json:"safe"`
	Warning int `json:"warning"`
	Danger  int `json:"danger"`
}

type changeDoc struct {
	Resource  string            `json:"resource"`
	Kind      string            `json:"kind"`
	Name      string            `json:"name"`
	Namespace string            `json:"namespace"`
	Status    domain.PairStatus `json:"status"`
	Risk      []riskDoc         `json:"risk"`
	Ownership ownershipDoc      `json:"ownership"`
	Fields    []fieldDoc        `json:"fields,omitempty"`
}

type riskDoc struct {
	Level   domain.RiskLevel `json:"level"`
	Rule    string           `json:"rule"`
	Message string           `json:"message"`
	Path    string           `json:"path"`
}

type ownershipDoc struct {
	Manager domain.Manager `json:"manager"`
	Release *string        `json:"release"`
	App     *string        `json:"app"`
}

type fieldDoc struct {
	Path string            `json:"path"`
	Old  any               `json:"old"`
	New  any               `json:"new"`
	Type domain.ChangeKind `json:"type"`
}

type crdAnalysisDoc struct {
	CRDs     []crdChangeDoc `json:"crds"`
	NewCRDs  []newCRDDoc    `json:"new_crds"`
	Warnings []string       `json:"warnings"`
	Policy   *policyDoc     `json:"policy,omitempty"`
}

type crdChangeDoc struct {
	Name                   string            `json:"name"`
	Status                 domain.PairStatus `json:"status"`
	MaxRisk                domain.RiskLevel  `json:"max_risk"`
	RiskAnnotations        []riskDoc         `json:"risk_annotations"`
	Changes                []fieldDoc        `json:"changes"`
	StoredVersionWarnings  []string          `json:"stored_version_warnings,omitempty"`
	SchemaValidationErrors []string          `json:"schema_validation_errors,omitempty"`
	OwnershipConflict      string            `json:"ownership_conflict,omitempty"`
}

type newCRDDoc struct {
	Name     string   `json:"name"`
	Group    string   `json:"group"`
	Kind     string   `json:"kind"`
	Versions []string `json:"versions"`
}

type policyDoc struct {
	Mode    domain.PolicyMode `json:"mode"`
	Blocked bool              `json:"blocked"`
	Message string            `json:"message"`
}

func (r *Reporter) Report(ctx context.Context, report *domain.PreviewReport) error {
	doc := buildDoc(report)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		r.logger.Errorf(ctx, err, "Failed to encode JSON report")
		return apperrors.Wrap(err, apperrors.CodeRenderError, "failed to encode JSON report")
	}

	if _, err := fmt.Fprintln(r.writer, string(data)); err != nil {
		return apperrors.Wrap(err, apperrors.CodeRenderError, "failed to write JSON report")
	}
	r.logger.Debugf(ctx, "JSON report written (%d change records)", len(doc.Changes))
	return nil
}

func buildDoc(report *domain.PreviewReport) reportDoc {
	doc := reportDoc{
		Summary: summaryDoc{
			Added:     report.Summary.Added,
			Removed:   report.Summary.Removed,
			Changed:   report.Summary.Changed,
			Unchanged: report.Summary.Unchanged,
		},
		RiskSummary: riskSummaryDoc{
			Safe:    report.RiskSummary.Safe,
			Warning: report.RiskSummary.Warning,
			Danger:  report.RiskSummary.Danger,
		},
		Changes: make([]changeDoc, 0, len(report.Changes)),
	}

	for _, change := range report.Changes {
		entry := changeDoc{
			Resource:  change.Key.String(),
			Kind:      change.Key.Kind,
			Name:      change.Key.Name,
			Namespace: change.Key.Namespace,
			Status:    change.Status,
			Risk:      riskDocs(change.Risk),
			Ownership: ownershipDoc{
				Manager: change.Ownership.Manager,
				Release: nullable(change.Ownership.Release),
				App:     nullable(change.Ownership.App),
			},
		}
		if change.Status == domain.StatusChanged {
			entry.Fields = fieldDocs(change.Fields)
		}
		doc.Changes = append(doc.Changes, entry)
	}

	if report.CRD != nil {
		doc.CRDAnalysis = buildCRDDoc(report.CRD)
	}
	return doc
}

func buildCRDDoc(crd *domain.CRDReport) *crdAnalysisDoc {
	doc := &crdAnalysisDoc{
		CRDs:     make([]crdChangeDoc, 0, len(crd.CRDs)),
		NewCRDs:  make([]newCRDDoc, 0, len(crd.NewCRDs)),
		Warnings: emptyIfNil(crd.Warnings),
	}

	for _, c := range crd.CRDs {
		doc.CRDs = append(doc.CRDs, crdChangeDoc{
			Name:                   c.Name,
			Status:                 c.Status,
			MaxRisk:                c.MaxRisk(),
			RiskAnnotations:        riskDocs(c.Risk),
			Changes:                fieldDocs(c.Fields),
			StoredVersionWarnings:  c.StoredVersionWarnings,
			SchemaValidationErrors: c.SchemaErrors,
			OwnershipConflict:      c.OwnershipConflict,
		})
	}

	for _, n := range crd.NewCRDs {
		doc.NewCRDs = append(doc.NewCRDs, newCRDDoc{
			Name:     n.Name,
			Group:    n.Group,
			Kind:     n.Kind,
			Versions: emptyIfNil(n.Versions),
		})
	}

	if crd.Policy != nil {
		doc.Policy = &policyDoc{
			Mode:    crd.Policy.Mode,
			Blocked: crd.Policy.Blocked,
			Message: crd.Policy.Message,
		}
	}
	return doc
}

func riskDocs(annotations []domain.RiskAnnotation) []riskDoc {
	out := make([]riskDoc, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, riskDoc{
			Level:   a.Level,
			Rule:    a.Rule,
			Message: a.Message,
			Path:    a.Path,
		})
	}
	return out
}

func fieldDocs(fields []domain.FieldChange) []fieldDoc {
	out := make([]fieldDoc, 0, len(fields))
	for _, fc := range fields {
		out = append(out, fieldDoc{
			Path: fc.Path,
			Old:  fc.Old,
			New:  fc.New,
			Type: fc.Kind,
		})
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
