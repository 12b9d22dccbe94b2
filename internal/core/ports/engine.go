package ports

import (
	"context"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// PreviewEngine runs one full diff: fetch, parse, pair, diff,
// classify, analyze CRDs, report. The returned report is the same
// value handed to the reporter; the caller uses it for the exit
// decision.
type PreviewEngine interface {
	Run(ctx context.Context) (*domain.PreviewReport, error)
}
