package app

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/chartsafe/helm-preview/internal/adapters/helm"
	"github.com/chartsafe/helm-preview/internal/adapters/kubectl"
	"github.com/chartsafe/helm-preview/internal/adapters/shell"
	"github.com/chartsafe/helm-preview/internal/config"
	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/core/ports"
	"github.com/chartsafe/helm-preview/internal/core/service"
	"github.com/chartsafe/helm-preview/internal/errors"
	"github.com/chartsafe/helm-preview/internal/log"
	jsonreport "github.com/chartsafe/helm-preview/internal/reporting/json"
	"github.com/chartsafe/helm-preview/internal/reporting/text"
)

type Application struct {
	Engine ports.PreviewEngine
	Logger ports.Logger
	Config *config.Config
}

// BuildApplicationFromViper assembles the full preview pipeline from
// the merged flag/env/file configuration. Release and chart come from
// the command line positionals, everything else from viper.
func BuildApplicationFromViper(ctx context.Context, v *viper.Viper, release, chart string) (*Application, error) {
	cfg := config.DefaultConfig()
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		lowercaseEnumHookFunc(),
	)))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}

	logCfg := log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	logger.Infof(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	} else {
		logger.Debugf(ctx, "No configuration file found, using defaults/env/flags.")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	err = validate.StructCtx(ctx, cfg)
	if err != nil {
		var errorDetails strings.Builder
		errorDetails.WriteString("Configuration validation failed:")
		validationErrors := err.(validator.ValidationErrors)
		for _, fe := range validationErrors {
			errorDetails.WriteString(fmt.Sprintf("\n - Field '%s': Failed on '%s' validation (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		wrappedErr := errors.NewUserFacing(errors.CodeConfigValidation, errorDetails.String(), "Please check your configuration file or flags.")
		logger.Errorf(ctx, wrappedErr, "Configuration validation failed")
		return nil, wrappedErr
	}
	logger.Debugf(ctx, "Configuration validated successfully")

	runner := shell.NewRunner(0, logger.WithFields(map[string]any{"component": "runner"}))

	source, err := helm.NewSource(helm.Config{
		Kubeconfig: cfg.Kube.Kubeconfig,
		Context:    cfg.Kube.Context,
	}, runner, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize helm release source")
	}
	logger.Infof(ctx, "Using Helm release source")

	reader, err := kubectl.NewReader(kubectl.Config{
		Namespace:  cfg.Diff.Namespace,
		Kubeconfig: cfg.Kube.Kubeconfig,
		Context:    cfg.Kube.Context,
	}, runner, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigValidation, "failed to initialize kubectl cluster reader")
	}
	if cfg.CRD.Enabled || cfg.Diff.ServerSide {
		if err := reader.EnsureAvailable(); err != nil {
			return nil, err
		}
		logger.Infof(ctx, "Using kubectl cluster reader")
	}

	var reporter ports.Reporter
	switch cfg.Settings.Output {
	case text.ReporterTypeTerminal:
		reportLog := logger.WithFields(map[string]any{"component": "reporter", "type": text.ReporterTypeTerminal})
		if cfg.Settings.Reporter.Terminal == nil {
			cfg.Settings.Reporter.Terminal = config.DefaultConfig().Settings.Reporter.Terminal
		}
		reporter, err = text.NewReporter(*cfg.Settings.Reporter.Terminal, reportLog)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize terminal reporter")
		}
		reportLog.Infof(ctx, "Using terminal reporter (Color: %t)", !cfg.Settings.Reporter.Terminal.NoColor)
	case jsonreport.ReporterTypeJSON:
		reportLog := logger.WithFields(map[string]any{"component": "reporter", "type": jsonreport.ReporterTypeJSON})
		jsonCfg := jsonreport.Config{}
		if cfg.Settings.Reporter.JSON != nil {
			jsonCfg = *cfg.Settings.Reporter.JSON
		}
		reporter, err = jsonreport.NewReporter(jsonCfg, reportLog)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize JSON reporter")
		}
		reportLog.Infof(ctx, "Using JSON reporter")
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported output format: %s", cfg.Settings.Output), "Supported: terminal, json")
	}

	logger.Debugf(ctx, "Initializing preview engine")
	engine, err := service.NewPreviewEngine(
		source, reader, reporter, logger.WithFields(map[string]any{"component": "engine"}),
		cfg, release, chart,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize preview engine")
	}

	logger.Infof(ctx, "Application bootstrap complete")
	return &Application{Engine: engine, Logger: logger, Config: cfg}, nil
}

// lowercaseEnumHookFunc folds string values destined for enum-like
// config fields to lower case, so `--crd-policy FAIL` and
// `HELM_PREVIEW_SETTINGS_LOG_LEVEL=DEBUG` both work.
func lowercaseEnumHookFunc() mapstructure.DecodeHookFuncType {
	enumTypes := map[reflect.Type]bool{
		reflect.TypeOf(domain.PolicyMode("")): true,
		reflect.TypeOf(log.Level("")):         true,
		reflect.TypeOf(log.Format("")):        true,
	}
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || !enumTypes[to] {
			return data, nil
		}
		return strings.ToLower(data.(string)), nil
	}
}
