package ports

import (
	"context"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// UpgradeRequest describes the upgrade whose manifests the release
// source should render.
type UpgradeRequest struct {
	Release     string
	Chart       string
	Namespace   string
	ValuesFiles []string
	SetValues   []string
	Version     string
}

// ReleaseSource produces the two manifest collections being compared:
// the live release state and the proposed upgrade render, both as raw
// multi-document YAML.
type ReleaseSource interface {
	LiveManifest(ctx context.Context, release, namespace string) (string, error)
	RenderUpgrade(ctx context.Context, req UpgradeRequest) (string, error)
}

// ClusterReader retrieves cluster state for CRD analysis and the
// server-side truth diff. CRD and instance listings never return an
// error; retrieval failure is carried as an unavailable fetch so the
// analysis degrades instead of aborting.
type ClusterReader interface {
	InstalledCRDs(ctx context.Context) domain.CRDFetch
	CustomResources(ctx context.Context, plural, group string) domain.InstanceFetch
	ServerDryRun(ctx context.Context, manifest string) (string, error)
}
