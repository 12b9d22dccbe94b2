package config

import (
	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/log"
	"github.com/chartsafe/helm-preview/internal/reporting/json"
	"github.com/chartsafe/helm-preview/internal/reporting/text"
)

type Config struct {
	Settings SettingsConfig `yaml:"settings" mapstructure:"settings"`
	Diff     DiffConfig     `yaml:"diff" mapstructure:"diff"`
	Kube     KubeConfig     `yaml:"kube" mapstructure:"kube"`
	CRD      CRDConfig      `yaml:"crd" mapstructure:"crd"`
}

type SettingsConfig struct {
	LogLevel    log.Level       `yaml:"log_level" mapstructure:"log_level"`
	LogFormat   log.Format      `yaml:"log_format" mapstructure:"log_format"`
	Concurrency int             `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=0"`
	Output      string          `yaml:"output" mapstructure:"output" validate:"oneof=terminal json"`
	Reporter    ReporterConfigs `yaml:"reporter_config" mapstructure:"reporter_config"`
}

// DiffConfig carries the per-run inputs of the diff itself. Namespace
// scopes both the live lookup and the parsed documents that carry no
// namespace of their own.
type DiffConfig struct {
	Namespace    string   `yaml:"namespace" mapstructure:"namespace" validate:"required"`
	ValuesFiles  []string `yaml:"values_files" mapstructure:"values_files"`
	SetValues    []string `yaml:"set_values" mapstructure:"set_values"`
	ChartVersion string   `yaml:"chart_version" mapstructure:"chart_version"`
	ServerSide   bool     `yaml:"server_side" mapstructure:"server_side"`
	ShowAll      bool     `yaml:"show_all" mapstructure:"show_all"`
	IgnorePaths  []string `yaml:"ignore_paths" mapstructure:"ignore_paths"`
}

type KubeConfig struct {
	Kubeconfig string `yaml:"kubeconfig" mapstructure:"kubeconfig"`
	Context    string `yaml:"context" mapstructure:"context"`
}

type CRDConfig struct {
	Enabled bool              `yaml:"enabled" mapstructure:"enabled"`
	Policy  domain.PolicyMode `yaml:"policy" mapstructure:"policy" validate:"oneof=ignore warn fail"`
}

type ReporterConfigs struct {
	Terminal *text.Config `yaml:"terminal,omitempty" mapstructure:"terminal"`
	JSON     *json.Config `yaml:"json,omitempty" mapstructure:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:    log.LevelInfo,
			LogFormat:   log.FormatText,
			Concurrency: 4,
			Output:      text.ReporterTypeTerminal,
			Reporter: ReporterConfigs{
				Terminal: &text.Config{ContextLines: 3},
			},
		},
		Diff: DiffConfig{
			Namespace: "default",
		},
		CRD: CRDConfig{
			Policy: domain.PolicyWarn,
		},
	}
}
