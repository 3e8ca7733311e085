package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/killrazor/kevwatch"
	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/report"
	"github.com/killrazor/kevwatch/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	apiKey      string
	limit       int
	outputDir   string
	stateBucket string
	stateRegion string
	stateFile   string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "kevwatch",
		Short: "Check CISA KEV entries for missing vendor patches",
		Long: `kevwatch downloads the CISA Known Exploited Vulnerabilities catalog,
selects the entries whose required action suggests no full patch exists,
queries the NVD API for each one, and writes a static HTML/JSON report.

NVD requests are rate limited with a sliding window (5 requests per 30s
without an API key, 50 with one) and retried with exponential backoff on
HTTP 429. A small throttle state record, persisted to a local file or an
S3 bucket, tunes concurrency and inter-request delay across runs.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindOptions(v, cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("api-key", "", "NVD API key for faster rate limits (env NVD_API_KEY)")
	flags.String("state-bucket", "", "S3 bucket for throttle state (env KEVWATCH_STATE_BUCKET)")
	flags.String("state-region", "us-east-1", "AWS region of the state bucket (env AWS_REGION)")
	flags.String("state-file", "kevwatch-state.json", "local throttle state file, used when no bucket is set")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.Flags().IntP("limit", "n", 0, "cap the number of CVEs to check (0 = all)")
	rootCmd.Flags().StringP("output", "o", "docs", "directory for index.html and data.json")

	_ = v.BindEnv("api-key", "NVD_API_KEY")
	_ = v.BindEnv("state-bucket", "KEVWATCH_STATE_BUCKET")
	_ = v.BindEnv("state-region", "AWS_REGION")

	rootCmd.AddCommand(newBulkCmd(v, opts))
	return rootCmd
}

func bindOptions(v *viper.Viper, cmd *cobra.Command, opts *options) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	opts.apiKey = v.GetString("api-key")
	opts.limit = v.GetInt("limit")
	opts.outputDir = v.GetString("output")
	opts.stateBucket = v.GetString("state-bucket")
	opts.stateRegion = v.GetString("state-region")
	opts.stateFile = v.GetString("state-file")
	opts.verbose = v.GetBool("verbose")
	return nil
}

func runCheck(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	zapLog, err := newZapLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZap(zapLog)

	checkerOpts := []kevwatch.ConfigOption{
		kevwatch.WithApiKey(opts.apiKey),
		kevwatch.WithLogger(log),
	}

	if opts.stateBucket != "" {
		s3Store, err := store.NewS3Store(ctx, opts.stateBucket, opts.stateRegion, log)
		if err != nil {
			return fmt.Errorf("building S3 state store: %w", err)
		}
		checkerOpts = append(checkerOpts, kevwatch.WithStateStore(s3Store))
	} else {
		checkerOpts = append(checkerOpts, kevwatch.WithStateFile(opts.stateFile))
	}

	checker := kevwatch.New(checkerOpts...)

	data, err := checker.Run(ctx, opts.limit)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return err
	}
	if err := writeReport(opts.outputDir, data); err != nil {
		return err
	}

	fmt.Printf("Checked %d CVEs: %d unpatched, %d mitigation-only, %d patched, %d errors\n",
		data.TotalChecked,
		data.Summary.Unpatched,
		data.Summary.MitigationOnly,
		data.Summary.Patched,
		data.Summary.Errors,
	)
	fmt.Printf("Report: %s\n", filepath.Join(opts.outputDir, "index.html"))
	return nil
}

func newBulkCmd(v *viper.Viper, opts *options) *cobra.Command {
	bulkCmd := &cobra.Command{
		Use:   "bulk",
		Short: "Fetch every CVE published in a trailing window",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindOptions(v, cmd, opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, err := cmd.Flags().GetInt("days")
			if err != nil {
				return err
			}
			maxResults, err := cmd.Flags().GetInt("max")
			if err != nil {
				return err
			}

			zapLog, err := newZapLogger(opts.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = zapLog.Sync() }()

			checker := kevwatch.New(
				kevwatch.WithApiKey(opts.apiKey),
				kevwatch.WithLogger(logger.NewZap(zapLog)),
				kevwatch.WithStateFile(opts.stateFile),
			)

			end := time.Now()
			start := end.AddDate(0, 0, -days)
			items, err := checker.FetchRange(cmd.Context(), start, end, maxResults)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
	bulkCmd.Flags().Int("days", 7, "trailing window of publication dates to fetch")
	bulkCmd.Flags().Int("max", 0, "cap on collected items (0 = all)")
	return bulkCmd
}

func writeReport(dir string, data *report.Data) error {
	htmlFile, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return err
	}
	defer func() { _ = htmlFile.Close() }()
	if err := report.WriteHTML(htmlFile, data); err != nil {
		return err
	}

	jsonFile, err := os.Create(filepath.Join(dir, "data.json"))
	if err != nil {
		return err
	}
	defer func() { _ = jsonFile.Close() }()
	return report.WriteJSON(jsonFile, data)
}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
