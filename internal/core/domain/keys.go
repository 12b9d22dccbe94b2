package domain

const (
	// Helm bookkeeping
	LabelHelmChart          = "helm.sh/chart"
	LabelManagedBy          = "app.kubernetes.io/managed-by"
	AnnotationHelmRelease   = "meta.helm.sh/release-name"
	AnnotationHelmNamespace = "meta.helm.sh/release-namespace"

	// ArgoCD bookkeeping
	LabelArgoCDInstance      = "app.kubernetes.io/instance"
	AnnotationArgoCDTracking = "argocd.argoproj.io/tracking-id"

	// Flux bookkeeping
	LabelFluxKustomizeName      = "kustomize.toolkit.fluxcd.io/name"
	LabelFluxKustomizeNamespace = "kustomize.toolkit.fluxcd.io/namespace"
	LabelFluxHelmName           = "helm.toolkit.fluxcd.io/name"

	// Server-side bookkeeping stripped before diffing
	AnnotationLastApplied = "kubectl.kubernetes.io/last-applied-configuration"
)
