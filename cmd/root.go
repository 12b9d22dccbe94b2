package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chartsafe/helm-preview/internal/app"
	apperrors "github.com/chartsafe/helm-preview/internal/errors"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// errPolicyBlocked turns a blocking CRD policy decision into exit
// code 1 without any extra output; the renderer already printed the
// policy message.
var errPolicyBlocked = errors.New("upgrade blocked by CRD policy")

var rootCmd = &cobra.Command{
	Use:           "helm-preview",
	Short:         "Semantic, noise-filtered, risk-aware diffs for Helm upgrades.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `helm-preview renders the manifests a Helm upgrade would apply and
compares them against the live release, reporting field-level changes with
risk annotations, ownership detection and optional CRD safety analysis.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff RELEASE CHART",
	Short: "Preview the diff of a Helm upgrade.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		release, chart := args[0], args[1]

		application, bootstrapErr := app.BuildApplicationFromViper(cmd.Context(), viper.GetViper(), release, chart)
		if bootstrapErr != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Application initialization failed: %v\n", bootstrapErr)
			if appErr := (*apperrors.AppError)(nil); errors.As(bootstrapErr, &appErr) {
				if appErr.IsUserFacing {
					fmt.Fprintf(os.Stderr, "Error Details: %s\n", appErr.Message)
					if appErr.SuggestedAction != "" {
						fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.SuggestedAction)
					}
				}
			}
			return bootstrapErr
		}

		report, runErr := application.Run(cmd.Context())
		if runErr != nil {
			userMsg, suggestion, _ := apperrors.GetUserFacingMessage(runErr)
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
			if suggestion != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
			}
			return runErr
		}

		if report.Blocked() {
			return errPolicyBlocked
		}
		return nil
	},
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .helm-preview.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text, json)")

	viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	diffCmd.Flags().StringP("namespace", "n", "default", "Kubernetes namespace")
	diffCmd.Flags().StringArrayP("values", "f", nil, "Values file(s)")
	diffCmd.Flags().StringArray("set", nil, "Set values (key=val)")
	diffCmd.Flags().String("version", "", "Chart version")
	diffCmd.Flags().Bool("server-side", false, "Truth-diff via server-side dry-run")
	diffCmd.Flags().Bool("show-all", false, "Disable noise filtering")
	diffCmd.Flags().StringP("output", "o", "terminal", "Output format (terminal, json)")
	diffCmd.Flags().Int("context", 3, "Lines of context around changes")
	diffCmd.Flags().StringArray("ignore-path", nil, "Additional dot-paths to ignore")
	diffCmd.Flags().String("kubeconfig", "", "Path to kubeconfig")
	diffCmd.Flags().String("kube-context", "", "Kubernetes context to use")
	diffCmd.Flags().Bool("no-color", false, "Disable colored output")
	diffCmd.Flags().Bool("risk-only", false, "Only show WARNING/DANGER changes")
	diffCmd.Flags().Bool("check-crds", false, "Enable CRD analysis")
	diffCmd.Flags().String("crd-policy", "warn", "CRD policy: ignore | warn | fail")

	viper.BindPFlag("diff.namespace", diffCmd.Flags().Lookup("namespace"))
	viper.BindPFlag("diff.values_files", diffCmd.Flags().Lookup("values"))
	viper.BindPFlag("diff.set_values", diffCmd.Flags().Lookup("set"))
	viper.BindPFlag("diff.chart_version", diffCmd.Flags().Lookup("version"))
	viper.BindPFlag("diff.server_side", diffCmd.Flags().Lookup("server-side"))
	viper.BindPFlag("diff.show_all", diffCmd.Flags().Lookup("show-all"))
	viper.BindPFlag("diff.ignore_paths", diffCmd.Flags().Lookup("ignore-path"))
	viper.BindPFlag("settings.output", diffCmd.Flags().Lookup("output"))
	viper.BindPFlag("settings.reporter_config.terminal.context_lines", diffCmd.Flags().Lookup("context"))
	viper.BindPFlag("settings.reporter_config.terminal.no_color", diffCmd.Flags().Lookup("no-color"))
	viper.BindPFlag("settings.reporter_config.terminal.risk_only", diffCmd.Flags().Lookup("risk-only"))
	viper.BindPFlag("kube.kubeconfig", diffCmd.Flags().Lookup("kubeconfig"))
	viper.BindPFlag("kube.context", diffCmd.Flags().Lookup("kube-context"))
	viper.BindPFlag("crd.enabled", diffCmd.Flags().Lookup("check-crds"))
	viper.BindPFlag("crd.policy", diffCmd.Flags().Lookup("crd-policy"))

	rootCmd.AddCommand(diffCmd)

	viper.SetEnvPrefix("HELM_PREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".helm-preview")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using configuration file:", viper.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults and environment variables.")
		} else {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}

	return nil
}
