package domain

import "fmt"

// ResourceKey identifies one manifest across release versions. It is
// the pairing join key; two documents with equal keys are versions of
// the same resource.
type ResourceKey struct {
	APIVersion string
	Kind       string
	Namespace  string
	Name       string
}

func (k ResourceKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Namespace, k.Name)
}

// Less orders keys for deterministic report output.
func (k ResourceKey) Less(other ResourceKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.Namespace != other.Namespace {
		return k.Namespace < other.Namespace
	}
	if k.Name != other.Name {
		return k.Name < other.Name
	}
	return k.APIVersion < other.APIVersion
}

// Resource is one parsed manifest document. Body is the decoded tree:
// map[string]any nodes, []any sequences, scalar leaves.
type Resource struct {
	Key  ResourceKey
	Body map[string]any
}

func (r *Resource) IsCRD() bool {
	return r != nil && r.Key.Kind == KindCustomResourceDefinition
}

type PairStatus string

const (
	StatusAdded     PairStatus = "added"
	StatusRemoved   PairStatus = "removed"
	StatusChanged   PairStatus = "changed"
	StatusUnchanged PairStatus = "unchanged"
)

// ResourcePair joins the live and proposed version of one resource.
// Status is derived from presence and diff emptiness, never set
// independently.
type ResourcePair struct {
	Key    ResourceKey
	Old    *Resource
	New    *Resource
	Status PairStatus
}

// Current returns the proposed document when present, else the live
// one. Ownership and CRD naming read from this side.
func (p ResourcePair) Current() *Resource {
	if p.New != nil {
		return p.New
	}
	return p.Old
}
