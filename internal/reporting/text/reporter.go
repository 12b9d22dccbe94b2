// Package text renders the preview report as a colored terminal diff.
package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
)

const ReporterTypeTerminal = "terminal"

type Config struct {
	NoColor      bool `yaml:"no_color" mapstructure:"no_color"`
	RiskOnly     bool `yaml:"risk_only" mapstructure:"risk_only"`
	ContextLines int  `yaml:"context_lines" mapstructure:"context_lines"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

func isTerminal(f *os.File) bool {
	stat, _ := f.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) Report(ctx context.Context, report *domain.PreviewReport) error {
	changes := report.Changes
	if r.config.RiskOnly {
		changes = filterRisky(changes)
	}

	if len(changes) == 0 && report.CRD == nil {
		fmt.Fprintln(r.writer, dim("No changes detected."))
		return nil
	}

	for _, change := range changes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.renderResource(change)
	}

	if report.CRD != nil {
		r.renderCRDSection(report.CRD)
	}

	r.renderSummary(changes, report.CRD)
	return nil
}

// filterRisky keeps only entries carrying at least one warning or
// danger annotation.
func filterRisky(changes []domain.ResourceReport) []domain.ResourceReport {
	kept := make([]domain.ResourceReport, 0, len(changes))
	for _, change := range changes {
		for _, a := range change.Risk {
			if a.Level == domain.RiskWarning || a.Level == domain.RiskDanger {
				kept = append(kept, change)
				break
			}
		}
	}
	return kept
}

func (r *Reporter) renderResource(change domain.ResourceReport) {
	fmt.Fprintln(r.writer, r.titleLine(change))

	if change.Status == domain.StatusChanged {
		for _, fc := range change.Fields {
			r.renderFieldChange(fc, change.Risk)
		}
	}

	for _, annotation := range change.Risk {
		label, paint := riskStyle(annotation.Level)
		fmt.Fprintf(r.writer, "  %s: %s\n", paint(label), annotation.Message)
	}

	fmt.Fprintln(r.writer)
}

func (r *Reporter) titleLine(change domain.ResourceReport) string {
	statusLabel, statusPaint := statusStyle(change.Status)
	bold := color.New(color.Bold).SprintFunc()

	var b strings.Builder
	b.WriteString(statusPaint(fmt.Sprintf("[%s]", statusLabel)))
	b.WriteString(" ")
	b.WriteString(bold(fmt.Sprintf("%s/%s", change.Key.Kind, change.Key.Name)))
	b.WriteString(dim(fmt.Sprintf("  (%s)", change.Key.Namespace)))

	ownerLabel, ownerPaint := ownerStyle(change.Ownership.Manager)
	b.WriteString(" ")
	b.WriteString(ownerPaint(fmt.Sprintf("[%s]", ownerLabel)))

	if len(change.Risk) > 0 {
		riskLabel, riskPaint := riskStyle(change.MaxRisk())
		b.WriteString(" ")
		b.WriteString(riskPaint(fmt.Sprintf("[%s]", riskLabel)))
	}
	return b.String()
}

func (r *Reporter) renderFieldChange(fc domain.FieldChange, annotations []domain.RiskAnnotation) {
	marker := riskMarker(fc.Path, annotations)
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	switch fc.Kind {
	case domain.ChangeValueChanged:
		fmt.Fprintln(r.writer, yellow(fmt.Sprintf("  ~ %s%s", fc.Path, marker)))
		fmt.Fprintln(r.writer, red(fmt.Sprintf("    - %s", formatValue(fc.Old))))
		fmt.Fprintln(r.writer, green(fmt.Sprintf("    + %s", formatValue(fc.New))))
	case domain.ChangeTypeChanged:
		fmt.Fprintln(r.writer, yellow(fmt.Sprintf("  ~ %s (type changed)%s", fc.Path, marker)))
		fmt.Fprintln(r.writer, red(fmt.Sprintf("    - %s (%s)", formatValue(fc.Old), typeName(fc.Old))))
		fmt.Fprintln(r.writer, green(fmt.Sprintf("    + %s (%s)", formatValue(fc.New), typeName(fc.New))))
	case domain.ChangeItemAdded:
		fmt.Fprintln(r.writer, green(fmt.Sprintf("  + %s%s", fc.Path, marker)))
		fmt.Fprintln(r.writer, green(fmt.Sprintf("    %s", formatValue(fc.New))))
	case domain.ChangeItemRemoved:
		fmt.Fprintln(r.writer, red(fmt.Sprintf("  - %s%s", fc.Path, marker)))
		fmt.Fprintln(r.writer, red(fmt.Sprintf("    %s", formatValue(fc.Old))))
	}
}

func (r *Reporter) renderCRDSection(crd *domain.CRDReport) {
	cyanBold := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(r.writer)
	fmt.Fprintln(r.writer, cyanBold("CRD Analysis"))
	fmt.Fprintln(r.writer, cyanBold("============"))
	fmt.Fprintln(r.writer)

	if len(crd.CRDs) > 0 {
		tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "CRD Name\tStatus\tRisk\tDetails")
		fmt.Fprintln(tw, "--------\t------\t----\t-------")
		for _, c := range crd.CRDs {
			statusLabel, statusPaint := statusStyle(c.Status)
			riskLabel, riskPaint := riskStyle(c.MaxRisk())
			details := ""
			if len(c.Fields) > 0 {
				details = fmt.Sprintf("%d change(s)", len(c.Fields))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, statusPaint(statusLabel), riskPaint(riskLabel), details)
		}
		tw.Flush()
		fmt.Fprintln(r.writer)
	}

	if len(crd.NewCRDs) > 0 {
		fmt.Fprintln(r.writer, color.New(color.FgGreen, color.Bold).Sprint("New CRDs:"))
		for _, n := range crd.NewCRDs {
			versions := strings.Join(n.Versions, ", ")
			fmt.Fprintf(r.writer, "  + %s (%s) %s\n", n.Name, n.Kind, dim("versions: "+versions))
		}
		fmt.Fprintln(r.writer)
	}

	var conflicts []string
	for _, c := range crd.CRDs {
		if c.OwnershipConflict != "" {
			conflicts = append(conflicts, c.OwnershipConflict)
		}
	}
	if len(conflicts) > 0 {
		fmt.Fprintln(r.writer, color.New(color.FgYellow, color.Bold).Sprint("Ownership Conflicts:"))
		for _, msg := range conflicts {
			fmt.Fprintf(r.writer, "  %s %s\n", yellow("!"), msg)
		}
		fmt.Fprintln(r.writer)
	}

	var storedWarnings bool
	for _, c := range crd.CRDs {
		if len(c.StoredVersionWarnings) > 0 {
			storedWarnings = true
			break
		}
	}
	if storedWarnings {
		fmt.Fprintln(r.writer, color.New(color.FgYellow, color.Bold).Sprint("Stored Version Warnings:"))
		for _, c := range crd.CRDs {
			for _, w := range c.StoredVersionWarnings {
				fmt.Fprintf(r.writer, "  %s %s: %s\n", yellow("!"), c.Name, w)
			}
		}
		fmt.Fprintln(r.writer)
	}

	var schemaErrors bool
	for _, c := range crd.CRDs {
		if len(c.SchemaErrors) > 0 {
			schemaErrors = true
			break
		}
	}
	if schemaErrors {
		fmt.Fprintln(r.writer, color.New(color.FgRed, color.Bold).Sprint("Schema Validation Issues:"))
		for _, c := range crd.CRDs {
			for _, e := range c.SchemaErrors {
				fmt.Fprintf(r.writer, "  %s %s: %s\n", red("!!"), c.Name, e)
			}
		}
		fmt.Fprintln(r.writer)
	}

	for _, c := range crd.CRDs {
		for _, annotation := range c.Risk {
			label, paint := riskStyle(annotation.Level)
			fmt.Fprintf(r.writer, "  %s %s: %s\n", paint(label), c.Name, annotation.Message)
		}
	}

	for _, warning := range crd.Warnings {
		fmt.Fprintln(r.writer, dim("  Warning: "+warning))
	}

	if crd.Policy != nil {
		if crd.Policy.Blocked {
			fmt.Fprintf(r.writer, "\n  %s\n", color.New(color.FgRed, color.Bold).Sprint(crd.Policy.Message))
		} else {
			fmt.Fprintf(r.writer, "\n  %s\n", dim(crd.Policy.Message))
		}
	}

	fmt.Fprintln(r.writer)
}

func (r *Reporter) renderSummary(changes []domain.ResourceReport, crd *domain.CRDReport) {
	var added, removed, changed, warnings, dangers int
	for _, c := range changes {
		switch c.Status {
		case domain.StatusAdded:
			added++
		case domain.StatusRemoved:
			removed++
		case domain.StatusChanged:
			changed++
		}
		for _, a := range c.Risk {
			switch a.Level {
			case domain.RiskWarning:
				warnings++
			case domain.RiskDanger:
				dangers++
			}
		}
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Summary:")
	fmt.Fprintln(tw, "-------")
	fmt.Fprintf(tw, "%s\t%d\n", green("Added"), added)
	fmt.Fprintf(tw, "%s\t%d\n", red("Removed"), removed)
	fmt.Fprintf(tw, "%s\t%d\n", yellow("Changed"), changed)
	if warnings > 0 {
		fmt.Fprintf(tw, "%s\t%d\n", yellow("Warnings"), warnings)
	}
	if dangers > 0 {
		fmt.Fprintf(tw, "%s\t%d\n", color.New(color.FgRed, color.Bold).Sprint("Dangers"), dangers)
	}

	if crd == nil {
		return
	}
	crdChanged := 0
	for _, c := range crd.CRDs {
		if c.Status == domain.StatusChanged {
			crdChanged++
		}
	}
	crdNew := len(crd.NewCRDs)
	if crdChanged > 0 || crdNew > 0 {
		fmt.Fprintf(tw, "%s\t%d\n", cyan("CRDs Changed"), crdChanged)
		if crdNew > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", cyan("CRDs New"), crdNew)
		}
	}
}

// riskMarker flags a field path carrying warning or danger
// annotations.
func riskMarker(path string, annotations []domain.RiskAnnotation) string {
	level := domain.RiskSafe
	for _, a := range annotations {
		if a.Path == path && a.Level.Rank() > level.Rank() {
			level = a.Level
		}
	}
	switch level {
	case domain.RiskDanger:
		return " !!"
	case domain.RiskWarning:
		return " !"
	default:
		return ""
	}
}

func statusStyle(status domain.PairStatus) (string, func(a ...any) string) {
	switch status {
	case domain.StatusAdded:
		return "ADDED", color.New(color.FgGreen, color.Bold).SprintFunc()
	case domain.StatusRemoved:
		return "REMOVED", color.New(color.FgRed, color.Bold).SprintFunc()
	case domain.StatusChanged:
		return "CHANGED", color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return "UNKNOWN", color.New(color.Faint).SprintFunc()
	}
}

func riskStyle(level domain.RiskLevel) (string, func(a ...any) string) {
	switch level {
	case domain.RiskDanger:
		return "DANGER", color.New(color.FgRed, color.Bold).SprintFunc()
	case domain.RiskWarning:
		return "WARNING", color.New(color.FgYellow).SprintFunc()
	default:
		return "SAFE", color.New(color.FgGreen).SprintFunc()
	}
}

func ownerStyle(manager domain.Manager) (string, func(a ...any) string) {
	switch manager {
	case domain.ManagerHelm:
		return string(domain.ManagerHelm), color.New(color.FgBlue).SprintFunc()
	case domain.ManagerArgoCD:
		return string(domain.ManagerArgoCD), color.New(color.FgMagenta).SprintFunc()
	case domain.ManagerFlux:
		return string(domain.ManagerFlux), color.New(color.FgCyan).SprintFunc()
	default:
		return string(domain.ManagerUnknown), color.New(color.Faint).SprintFunc()
	}
}

func dim(s string) string {
	return color.New(color.Faint).Sprint(s)
}

// formatValue renders a leaf for the diff body. Long values are
// truncated so one field cannot swamp the terminal.
func formatValue(value any) string {
	var s string
	switch v := value.(type) {
	case nil:
		s = "null"
	case string:
		s = strconv.Quote(v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", value)
	}
}
