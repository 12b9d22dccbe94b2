package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
)

// MockReleaseSource is a mock implementation of ports.ReleaseSource
type MockReleaseSource struct {
	mock.Mock
}

func (m *MockReleaseSource) LiveManifest(ctx context.Context, release, namespace string) (string, error) {
	args := m.Called(ctx, release, namespace)
	return args.String(0), args.Error(1)
}

func (m *MockReleaseSource) RenderUpgrade(ctx context.Context, req ports.UpgradeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockClusterReader is a mock implementation of ports.ClusterReader
type MockClusterReader struct {
	mock.Mock
}

func (m *MockClusterReader) InstalledCRDs(ctx context.Context) domain.CRDFetch {
	args := m.Called(ctx)
	return args.Get(0).(domain.CRDFetch)
}

func (m *MockClusterReader) CustomResources(ctx context.Context, plural, group string) domain.InstanceFetch {
	args := m.Called(ctx, plural, group)
	return args.Get(0).(domain.InstanceFetch)
}

func (m *MockClusterReader) ServerDryRun(ctx context.Context, manifest string) (string, error) {
	args := m.Called(ctx, manifest)
	return args.String(0), args.Error(1)
}

// MockCommandRunner is a mock implementation of shell.CommandRunner
type MockCommandRunner struct {
	mock.Mock
}

func (m *MockCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	callArgs := m.Called(ctx, name, args)
	return callArgs.String(0), callArgs.String(1), callArgs.Error(2)
}

func (m *MockCommandRunner) RunWithInput(ctx context.Context, input string, name string, args ...string) (string, string, error) {
	callArgs := m.Called(ctx, input, name, args)
	return callArgs.String(0), callArgs.String(1), callArgs.Error(2)
}

func (m *MockCommandRunner) LookPath(name string) error {
	callArgs := m.Called(name)
	return callArgs.Error(0)
}

// MockReporter is a mock implementation of ports.Reporter
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) Report(ctx context.Context, report *domain.PreviewReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// MockLogger is a mock implementation of ports.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debugf(ctx context.Context, format string, args ...any) {
	m.Called(ctx, format, args)
}

func (m *MockLogger) Infof(ctx context.Context, format string, args ...any) {
	m.Called(ctx, format, args)
}

func (m *MockLogger) Warnf(ctx context.Context, format string, args ...any) {
	m.Called(ctx, format, args)
}

func (m *MockLogger) Errorf(ctx context.Context, err error, format string, args ...any) {
	m.Called(ctx, err, format, args)
}

func (m *MockLogger) WithFields(fields map[string]any) ports.Logger {
	args := m.Called(fields)
	return args.Get(0).(ports.Logger)
}

// NewTestLogger creates a new MockLogger with permissive expectations
// for every method.
func NewTestLogger() *MockLogger {
	mockLogger := new(MockLogger)
	mockLogger.On("WithFields", mock.Anything).Return(mockLogger)
	mockLogger.On("Debugf", mock.Anything, mock.Anything, mock.Anything).Return()
	mockLogger.On("Infof", mock.Anything, mock.Anything, mock.Anything).Return()
	mockLogger.On("Warnf", mock.Anything, mock.Anything, mock.Anything).Return()
	mockLogger.On("Errorf", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()
	return mockLogger
}
