package app

import (
	"context"

	"github.com/chartsafe/helm-preview/internal/core/domain"
)

// Run executes one preview. The returned report carries the CRD
// policy decision the command layer turns into the exit code.
func (a *Application) Run(ctx context.Context) (*domain.PreviewReport, error) {
	a.Logger.Infof(ctx, "Starting upgrade preview...")

	report, err := a.Engine.Run(ctx)
	if err != nil {
		a.Logger.Errorf(ctx, err, "Upgrade preview failed")
		return nil, err
	}

	a.Logger.Infof(ctx, "Upgrade preview completed successfully")
	return report, nil
}
