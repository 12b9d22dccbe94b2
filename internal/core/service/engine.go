package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chartsafe/helm-preview/internal/config"
	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
	"github.com/chartsafe/helm-preview/internal/crd"
	"github.com/chartsafe/helm-preview/internal/diff"
	"github.com/chartsafe/helm-preview/internal/errors"
	"github.com/chartsafe/helm-preview/internal/manifest"
	"github.com/chartsafe/helm-preview/internal/ownership"
	"github.com/chartsafe/helm-preview/internal/risk"
)

// PreviewEngine drives one preview run: fetch the live and proposed
// manifests, pair and diff them, grade the changes, optionally analyze
// CRDs, and hand the assembled report to the reporter.
type PreviewEngine struct {
	source      ports.ReleaseSource
	cluster     ports.ClusterReader
	reporter    ports.Reporter
	logger      ports.Logger
	appConfig   *config.Config
	release     string
	chart       string
	concurrency int
}

func NewPreviewEngine(
	source ports.ReleaseSource,
	cluster ports.ClusterReader,
	reporter ports.Reporter,
	logger ports.Logger,
	appConfig *config.Config,
	release string,
	chart string,
) (*PreviewEngine, error) {
	if source == nil {
		return nil, errors.New(errors.CodeConfigValidation, "release source cannot be nil")
	}
	if cluster == nil {
		return nil, errors.New(errors.CodeConfigValidation, "cluster reader cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New(errors.CodeConfigValidation, "reporter cannot be nil")
	}
	if appConfig == nil {
		return nil, errors.New(errors.CodeConfigValidation, "configuration cannot be nil")
	}
	if release == "" {
		return nil, errors.New(errors.CodeConfigValidation, "release name cannot be empty")
	}
	if chart == "" {
		return nil, errors.New(errors.CodeConfigValidation, "chart cannot be empty")
	}

	concurrency := appConfig.Settings.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &PreviewEngine{
		source:      source,
		cluster:     cluster,
		reporter:    reporter,
		logger:      logger,
		appConfig:   appConfig,
		release:     release,
		chart:       chart,
		concurrency: concurrency,
	}, nil
}

func (e *PreviewEngine) Run(ctx context.Context) (*domain.PreviewReport, error) {
	ns := e.appConfig.Diff.Namespace
	e.logger.Infof(ctx, "Starting preview of release %q against chart %q in namespace %q",
		e.release, e.chart, ns)

	crdCfg := e.appConfig.CRD

	var liveYAML, proposedYAML string
	var installed domain.CRDFetch

	g, childCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		manifestYAML, err := e.source.LiveManifest(childCtx, e.release, ns)
		if err != nil {
			return errors.Wrap(err, errors.CodeHelmCommand, "failed fetching live release manifest")
		}
		liveYAML = manifestYAML
		return nil
	})
	g.Go(func() error {
		rendered, err := e.source.RenderUpgrade(childCtx, ports.UpgradeRequest{
			Release:     e.release,
			Chart:       e.chart,
			Namespace:   ns,
			ValuesFiles: e.appConfig.Diff.ValuesFiles,
			SetValues:   e.appConfig.Diff.SetValues,
			Version:     e.appConfig.Diff.ChartVersion,
		})
		if err != nil {
			return errors.Wrap(err, errors.CodeHelmCommand, "failed rendering upgrade manifest")
		}
		proposedYAML = rendered
		return nil
	})
	if crdCfg.Enabled && crdCfg.Policy != domain.PolicyIgnore {
		// The listing never errors; failure comes back as an
		// unavailable fetch and turns into a report warning.
		g.Go(func() error {
			installed = e.cluster.InstalledCRDs(childCtx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Errorf(ctx, err, "Fetching release manifests failed")
		return nil, err
	}

	liveResources, err := manifest.Parse([]byte(liveYAML), ns)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestParse, "failed parsing live manifest")
	}
	proposedResources, err := manifest.Parse([]byte(proposedYAML), ns)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestParse, "failed parsing upgrade manifest")
	}
	e.logger.Debugf(ctx, "Parsed %d live and %d proposed documents", len(liveResources), len(proposedResources))

	if e.appConfig.Diff.ServerSide {
		proposedResources = e.serverSideMutate(ctx, proposedResources)
	}

	pairs := manifest.Pair(liveResources, proposedResources)

	var crdReport *domain.CRDReport
	if crdCfg.Enabled {
		// CRDs get their own pipeline; keeping them in the generic
		// diff would report every schema change twice.
		_, pairs = manifest.SplitCRDs(pairs)
		crdReport = e.analyzeCRDs(ctx, proposedResources, installed)
	}

	base := diff.DefaultNoisePaths
	if e.appConfig.Diff.ShowAll {
		base = nil
	}
	ignores, err := diff.CompileIgnores(base, e.appConfig.Diff.IgnorePaths)
	if err != nil {
		return nil, err
	}

	reports := diff.DiffAll(pairs, ignores)
	risk.AssessAll(reports)

	ownerByKey := make(map[domain.ResourceKey]domain.Ownership, len(pairs))
	for _, p := range pairs {
		ownerByKey[p.Key] = ownership.DetectForPair(p)
	}
	for i := range reports {
		reports[i].Ownership = ownerByKey[reports[i].Key]
	}

	report := &domain.PreviewReport{
		Changes: reports,
		CRD:     crdReport,
	}
	for _, p := range pairs {
		if p.Status == domain.StatusUnchanged {
			report.Summary.Unchanged++
		}
	}
	for _, rep := range reports {
		switch rep.Status {
		case domain.StatusAdded:
			report.Summary.Added++
		case domain.StatusRemoved:
			report.Summary.Removed++
		case domain.StatusChanged:
			report.Summary.Changed++
		}
		report.RiskSummary.Add(rep.MaxRisk())
	}

	e.logger.Infof(ctx, "Diff complete: %d added, %d removed, %d changed, %d unchanged",
		report.Summary.Added, report.Summary.Removed, report.Summary.Changed, report.Summary.Unchanged)

	if err := e.reporter.Report(ctx, report); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to generate final report")
	}
	return report, nil
}

// serverSideMutate replaces each proposed document with the cluster's
// dry-run result, resolving admission defaults and webhook mutations.
// A document whose dry-run fails stays as rendered.
func (e *PreviewEngine) serverSideMutate(ctx context.Context, resources []*domain.Resource) []*domain.Resource {
	e.logger.Infof(ctx, "Resolving server-side defaults for %d documents", len(resources))

	out := make([]*domain.Resource, len(resources))
	g, childCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, res := range resources {
		g.Go(func() error {
			out[i] = e.serverSideOne(childCtx, res)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *PreviewEngine) serverSideOne(ctx context.Context, res *domain.Resource) *domain.Resource {
	doc, err := manifest.Dump(res)
	if err != nil {
		e.logger.Debugf(ctx, "Skipping server-side dry-run for %s: %v", res.Key, err)
		return res
	}
	mutatedYAML, err := e.cluster.ServerDryRun(ctx, string(doc))
	if err != nil {
		e.logger.Debugf(ctx, "Server-side dry-run failed for %s, keeping rendered document: %v", res.Key, err)
		return res
	}
	mutated, err := manifest.Parse([]byte(mutatedYAML), res.Key.Namespace)
	if err != nil || len(mutated) == 0 {
		e.logger.Debugf(ctx, "Could not parse server-side dry-run output for %s, keeping rendered document", res.Key)
		return res
	}
	return mutated[0]
}

func (e *PreviewEngine) analyzeCRDs(ctx context.Context, proposed []*domain.Resource, installed domain.CRDFetch) *domain.CRDReport {
	input := crd.AnalysisInput{
		Proposed:  proposed,
		ChartCRDs: crd.FromChartDir(e.chart),
		Installed: installed,
		Release:   e.release,
		Policy:    e.appConfig.CRD.Policy,
	}
	if input.Policy != domain.PolicyIgnore {
		merged := crd.MergeProposed(crd.FromResources(proposed), input.ChartCRDs)
		input.LiveInstances = e.fetchInstances(ctx, merged, installed)
	}

	report := crd.Analyze(input)
	e.logger.Infof(ctx, "CRD analysis: %d definition(s) changed, %d new, %d warning(s)",
		len(report.CRDs), len(report.NewCRDs), len(report.Warnings))
	return report
}

// fetchInstances lists live custom resources for every proposed CRD
// that is also installed. Only those definitions can have live
// instances to validate, so new CRDs are skipped.
func (e *PreviewEngine) fetchInstances(ctx context.Context, proposed []*domain.CRDRecord, installed domain.CRDFetch) map[string]domain.InstanceFetch {
	installedNames := make(map[string]struct{})
	for _, rec := range crd.FromResources(installed.Resources) {
		installedNames[rec.Name] = struct{}{}
	}

	var targets []*domain.CRDRecord
	for _, rec := range proposed {
		if rec.Plural == "" || rec.Group == "" {
			continue
		}
		if _, ok := installedNames[rec.Name]; ok {
			targets = append(targets, rec)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	e.logger.Debugf(ctx, "Fetching live instances for %d CRD(s)", len(targets))

	out := make(map[string]domain.InstanceFetch, len(targets))
	var mu sync.Mutex
	g, childCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, rec := range targets {
		g.Go(func() error {
			fetch := e.cluster.CustomResources(childCtx, rec.Plural, rec.Group)
			mu.Lock()
			out[rec.Name] = fetch
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
