// Package kubectl reads cluster state through the kubectl CLI:
// installed CRD definitions, live custom-resource instances, and the
// server-side dry-run echo used for truth diffing.
package kubectl

import (
	"context"
	"fmt"

	"github.com/chartsafe/helm-preview/internal/adapters/shell"
	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
	"github.com/chartsafe/helm-preview/internal/errors"
	"github.com/chartsafe/helm-preview/internal/manifest"
)

const ReaderTypeKubectl = "kubectl"

// Config carries the cluster-selection flags appended to every
// kubectl invocation. Namespace scopes the server-side dry-run for
// documents that do not name their own.
type Config struct {
	Namespace  string `yaml:"namespace" mapstructure:"namespace"`
	Kubeconfig string `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Context    string `yaml:"context" mapstructure:"context"`
}

type Reader struct {
	config Config
	runner shell.CommandRunner
	logger ports.Logger
}

func NewReader(cfg Config, runner shell.CommandRunner, logger ports.Logger) (*Reader, error) {
	if runner == nil {
		return nil, errors.New(errors.CodeConfigValidation, "command runner cannot be nil")
	}

	slog := logger.WithFields(map[string]any{"reader": ReaderTypeKubectl})
	return &Reader{config: cfg, runner: runner, logger: slog}, nil
}

func (r *Reader) Type() string { return ReaderTypeKubectl }

// EnsureAvailable verifies the kubectl binary can be found. Callers
// invoke it only when a mode that needs cluster access is enabled, so
// plain renders keep working without kubectl installed.
func (r *Reader) EnsureAvailable() error {
	return r.runner.LookPath("kubectl")
}

// InstalledCRDs lists every CRD known to the cluster. Failures come
// back as an unavailable fetch so CRD analysis can degrade to a
// warning instead of aborting the preview.
func (r *Reader) InstalledCRDs(ctx context.Context) domain.CRDFetch {
	args := r.appendKubeFlags([]string{"get", "crds", "-o", "yaml"})

	out, stderrText, err := r.runner.Run(ctx, "kubectl", args...)
	if err != nil {
		reason := commandDetail(stderrText, err)
		r.logger.Warnf(ctx, "Could not list installed CRDs: %s", reason)
		return domain.CRDFetch{Unavailable: true, Reason: reason}
	}

	parsed, err := manifest.ParseList([]byte(out), "")
	if err != nil {
		r.logger.Warnf(ctx, "Could not decode installed CRD listing: %v", err)
		return domain.CRDFetch{Unavailable: true, Reason: fmt.Sprintf("decoding CRD listing: %v", err)}
	}

	resources := make([]*domain.Resource, 0, len(parsed))
	for _, res := range parsed {
		if res.Key.Kind == domain.KindCustomResourceDefinition {
			resources = append(resources, res)
		}
	}

	r.logger.Debugf(ctx, "Listed %d installed CRDs", len(resources))
	return domain.CRDFetch{Resources: resources}
}

// CustomResources lists live instances of one custom-resource kind
// across all namespaces.
func (r *Reader) CustomResources(ctx context.Context, plural, group string) domain.InstanceFetch {
	resourceName := fmt.Sprintf("%s.%s", plural, group)
	args := r.appendKubeFlags([]string{"get", resourceName, "-A", "-o", "yaml"})

	out, stderrText, err := r.runner.Run(ctx, "kubectl", args...)
	if err != nil {
		reason := commandDetail(stderrText, err)
		r.logger.Warnf(ctx, "Could not list %s instances: %s", resourceName, reason)
		return domain.InstanceFetch{Unavailable: true, Reason: reason}
	}

	parsed, err := manifest.ParseList([]byte(out), "")
	if err != nil {
		r.logger.Warnf(ctx, "Could not decode %s instances: %v", resourceName, err)
		return domain.InstanceFetch{Unavailable: true, Reason: fmt.Sprintf("decoding instances: %v", err)}
	}

	items := make([]map[string]any, 0, len(parsed))
	for _, res := range parsed {
		items = append(items, res.Body)
	}

	r.logger.Debugf(ctx, "Listed %d instances of %s", len(items), resourceName)
	return domain.InstanceFetch{Items: items}
}

// ServerDryRun submits one document to the API server in dry-run mode
// and returns the echoed, admission-mutated version.
func (r *Reader) ServerDryRun(ctx context.Context, doc string) (string, error) {
	args := []string{"apply", "--dry-run=server", "-f", "-", "-o", "yaml"}
	if r.config.Namespace != "" {
		args = append(args, "--namespace", r.config.Namespace)
	}
	args = r.appendKubeFlags(args)

	out, stderrText, err := r.runner.RunWithInput(ctx, doc, "kubectl", args...)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeKubectlCommand,
			fmt.Sprintf("kubectl server-side dry-run failed: %s", commandDetail(stderrText, err)))
	}
	return out, nil
}

func (r *Reader) appendKubeFlags(args []string) []string {
	if r.config.Kubeconfig != "" {
		args = append(args, "--kubeconfig", r.config.Kubeconfig)
	}
	if r.config.Context != "" {
		args = append(args, "--context", r.config.Context)
	}
	return args
}

func commandDetail(stderrText string, err error) string {
	if stderrText != "" {
		return stderrText
	}
	return err.Error()
}
