package domain

// CRDFetch is the installed-CRD listing supplied by the cluster
// reader. Unavailable marks a listing that could not be retrieved;
// analysis then proceeds against an empty set with a warning instead
// of aborting.
type CRDFetch struct {
	Resources   []*Resource
	Unavailable bool
	Reason      string
}

// InstanceFetch carries the live documents of one custom-resource
// kind, keyed by CRD name in the pipeline input.
type InstanceFetch struct {
	Items       []map[string]any
	Unavailable bool
	Reason      string
}
