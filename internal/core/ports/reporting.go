package ports

import (
	"context"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

type Reporter interface {
	Report(ctx context.Context, report *domain.PreviewReport) error
}
