package domain

type Manager string

const (
	ManagerHelm    Manager = "helm"
	ManagerArgoCD  Manager = "argocd"
	ManagerFlux    Manager = "flux"
	ManagerUnknown Manager = "unknown"
)

// Ownership attributes a resource to the tool managing it. Release and
// App are empty when the corresponding metadata is absent; detection
// never fails.
type Ownership struct {
	Manager Manager
	Release string
	App     string
}
