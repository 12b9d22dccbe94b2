// Package helm shells out to the Helm CLI for the two manifest
// collections being compared: the deployed release state and the
// rendered upgrade.
package helm

import (
	"context"
	"fmt"
	"strings"

	"github.com/chartsafe/helm-preview/internal/adapters/shell"
	"github.com/chartsafe/helm-preview/internal/core/ports"
	"github.com/chartsafe/helm-preview/internal/errors"
)

const SourceTypeHelm = "helm"

// Config carries the cluster-selection flags appended to every helm
// invocation.
type Config struct {
	Kubeconfig string `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Context    string `yaml:"context" mapstructure:"context"`
}

type Source struct {
	config Config
	runner shell.CommandRunner
	logger ports.Logger
}

func NewSource(cfg Config, runner shell.CommandRunner, logger ports.Logger) (*Source, error) {
	if runner == nil {
		return nil, errors.New(errors.CodeConfigValidation, "command runner cannot be nil")
	}
	if err := runner.LookPath("helm"); err != nil {
		return nil, err
	}

	slog := logger.WithFields(map[string]any{"source": SourceTypeHelm})
	return &Source{config: cfg, runner: runner, logger: slog}, nil
}

func (s *Source) Type() string { return SourceTypeHelm }

// LiveManifest returns the multi-document manifest of the deployed
// release, exactly as helm stored it.
func (s *Source) LiveManifest(ctx context.Context, release, namespace string) (string, error) {
	args := []string{"get", "manifest", release, "--namespace", namespace}
	args = s.appendKubeFlags(args)

	out, stderrText, err := s.runner.Run(ctx, "helm", args...)
	if err != nil {
		return "", errors.WrapUserFacing(err, errors.CodeHelmCommand,
			fmt.Sprintf("helm get manifest failed for release '%s': %s", release, commandDetail(stderrText, err)),
			"Check that the release name and namespace are correct.")
	}

	s.logger.Debugf(ctx, "Fetched live manifest for release %s (%d bytes)", release, len(out))
	return out, nil
}

// RenderUpgrade performs a client-side dry-run of the upgrade and
// returns the MANIFEST section of helm's status output.
func (s *Source) RenderUpgrade(ctx context.Context, req ports.UpgradeRequest) (string, error) {
	args := []string{"upgrade", req.Release, req.Chart, "--dry-run", "--namespace", req.Namespace}
	for _, file := range req.ValuesFiles {
		args = append(args, "--values", file)
	}
	for _, value := range req.SetValues {
		args = append(args, "--set", value)
	}
	if req.Version != "" {
		args = append(args, "--version", req.Version)
	}
	args = s.appendKubeFlags(args)

	out, stderrText, err := s.runner.Run(ctx, "helm", args...)
	if err != nil {
		return "", errors.WrapUserFacing(err, errors.CodeHelmCommand,
			fmt.Sprintf("helm upgrade --dry-run failed for release '%s': %s", req.Release, commandDetail(stderrText, err)),
			"Check the chart path, version and values files.")
	}

	manifest, ok := extractManifest(out)
	if !ok {
		return "", errors.New(errors.CodeHelmCommand,
			fmt.Sprintf("helm upgrade --dry-run output for release '%s' has no MANIFEST section", req.Release))
	}

	s.logger.Debugf(ctx, "Rendered upgrade manifest for release %s (%d bytes)", req.Release, len(manifest))
	return manifest, nil
}

func (s *Source) appendKubeFlags(args []string) []string {
	if s.config.Kubeconfig != "" {
		args = append(args, "--kubeconfig", s.config.Kubeconfig)
	}
	if s.config.Context != "" {
		args = append(args, "--kube-context", s.config.Context)
	}
	return args
}

// extractManifest cuts the rendered documents out of the dry-run
// status output. The section starts after the MANIFEST: marker line
// and runs until the NOTES: section or the end of output.
func extractManifest(out string) (string, bool) {
	lines := strings.Split(out, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == "MANIFEST:" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], "NOTES:") {
			end = i
			break
		}
	}

	return strings.Join(lines[start:end], "\n"), true
}

func commandDetail(stderrText string, err error) string {
	if stderrText != "" {
		return stderrText
	}
	return err.Error()
}
