package domain

type Summary struct {
	Added     int
	Removed   int
	Changed   int
	Unchanged int
}

// RiskSummary counts resources by their highest applicable risk level.
type RiskSummary struct {
	Safe    int
	Warning int
	Danger  int
}

func (s *RiskSummary) Add(level RiskLevel) {
	switch level {
	case RiskDanger:
		s.Danger++
	case RiskWarning:
		s.Warning++
	default:
		s.Safe++
	}
}

// ResourceReport is one pair's entry in the final report: its status,
// the surviving field changes, risk annotations, and ownership.
type ResourceReport struct {
	Key       ResourceKey
	Status    PairStatus
	Fields    []FieldChange
	Risk      []RiskAnnotation
	Ownership Ownership
}

func (r ResourceReport) MaxRisk() RiskLevel {
	return MaxRisk(r.Risk)
}

// PreviewReport is the complete outcome of one diff run, handed to a
// renderer unchanged.
type PreviewReport struct {
	Summary     Summary
	RiskSummary RiskSummary
	Changes     []ResourceReport
	CRD         *CRDReport
}

// Blocked reports whether the CRD policy decision should fail the run.
func (r PreviewReport) Blocked() bool {
	return r.CRD != nil && r.CRD.Policy != nil && r.CRD.Policy.Blocked
}
