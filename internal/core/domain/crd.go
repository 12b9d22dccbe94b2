package domain

type CRDVersion struct {
	Name    string
	Served  bool
	Storage bool
	Schema  map[string]any
}

// CRDRecord is the parsed view of one CustomResourceDefinition
// manifest. Body keeps the full document for diffing and ownership
// inspection.
type CRDRecord struct {
	Name           string
	Group          string
	Kind           string
	Plural         string
	Scope          string
	Versions       []CRDVersion
	StoredVersions []string
	Body           map[string]any
}

// StorageVersion returns the version marked storage, or "" when none
// is.
func (r *CRDRecord) StorageVersion() string {
	for _, v := range r.Versions {
		if v.Storage {
			return v.Name
		}
	}
	return ""
}

func (r *CRDRecord) VersionNames() []string {
	names := make([]string, 0, len(r.Versions))
	for _, v := range r.Versions {
		names = append(names, v.Name)
	}
	return names
}

// CRDPair joins the installed and proposed definition of one CRD,
// matched by metadata.name.
type CRDPair struct {
	Name   string
	Old    *CRDRecord
	New    *CRDRecord
	Status PairStatus
}

// CRDChange is the analysis outcome for one paired CRD.
type CRDChange struct {
	Name                  string
	Status                PairStatus
	Fields                []FieldChange
	Risk                  []RiskAnnotation
	StoredVersionWarnings []string
	SchemaErrors          []string
	OwnershipConflict     string
}

func (c CRDChange) MaxRisk() RiskLevel {
	return MaxRisk(c.Risk)
}

// NewCRDInfo describes a CRD present in the proposed set but not
// installed; there is nothing to compare it against.
type NewCRDInfo struct {
	Name     string
	Group    string
	Kind     string
	Versions []string
}

type PolicyMode string

const (
	PolicyIgnore PolicyMode = "ignore"
	PolicyWarn   PolicyMode = "warn"
	PolicyFail   PolicyMode = "fail"
)

// PolicyDecision is the policy verdict over all CRD findings. Blocked
// is true only in fail mode with at least one danger-level CRD.
type PolicyDecision struct {
	Mode    PolicyMode
	Blocked bool
	Message string
}

// CRDReport collects everything the CRD pipeline produced.
type CRDReport struct {
	CRDs     []CRDChange
	NewCRDs  []NewCRDInfo
	Policy   *PolicyDecision
	Warnings []string
}

func (r *CRDReport) HasDangers() bool {
	for _, c := range r.CRDs {
		if c.MaxRisk() == RiskDanger {
			return true
		}
	}
	return false
}
