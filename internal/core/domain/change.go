package domain

type ChangeKind string

const (
	ChangeValueChanged ChangeKind = "value_changed"
	ChangeTypeChanged  ChangeKind = "type_changed"
	ChangeItemAdded    ChangeKind = "item_added"
	ChangeItemRemoved  ChangeKind = "item_removed"
)

// FieldChange records one structural difference between the normalized
// old and new documents. Path uses '.' for map descent and '[i]' for
// sequence indexes. Old and New hold the raw values, never the
// canonicalized forms used for equality.
type FieldChange struct {
	Path string
	Old  any
	New  any
	Kind ChangeKind
}

type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskWarning RiskLevel = "warning"
	RiskDanger  RiskLevel = "danger"
)

func (l RiskLevel) Rank() int {
	switch l {
	case RiskDanger:
		return 2
	case RiskWarning:
		return 1
	default:
		return 0
	}
}

// MaxRisk returns the highest level among the annotations, or RiskSafe
// when there are none.
func MaxRisk(annotations []RiskAnnotation) RiskLevel {
	max := RiskSafe
	for _, a := range annotations {
		if a.Level.Rank() > max.Rank() {
			max = a.Level
		}
	}
	return max
}

// RiskAnnotation grades one field change. Rule is the stable
// identifier of the matched rule, Path echoes the change's path.
type RiskAnnotation struct {
	Level   RiskLevel
	Rule    string
	Message string
	Path    string
}
