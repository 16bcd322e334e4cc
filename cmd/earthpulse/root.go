package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/horkydorky/Earth-Pulse/common"
	"github.com/horkydorky/Earth-Pulse/common/model"
	"github.com/horkydorky/Earth-Pulse/config"
	"github.com/horkydorky/Earth-Pulse/modules/earthdata"
)

// app is the state shared by every subcommand. It is built once per
// invocation in PersistentPreRunE.
type app struct {
	flagConfig  string
	flagBaseURL string
	flagRegion  string
	flagVerbose bool
	flagStats   bool

	cfg     *config.Config
	logger  *slog.Logger
	latency *common.LatencyTracker
	svc     earthdata.EarthDataService
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "earthpulse",
		Short: "Query the EarthPulse environmental API",
		Long: `earthpulse fetches NDVI, glacier, urban and temperature indicators from an
EarthPulse API server. Indicator and summary reads are cached for the
lifetime of the process.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flagConfig, "config", "", "path to config file")
	pf.StringVar(&a.flagBaseURL, "base-url", "", "API base URL (overrides config)")
	pf.StringVar(&a.flagRegion, "region", "", "region id (default from config)")
	pf.BoolVarP(&a.flagVerbose, "verbose", "v", false, "debug logging on stderr")
	pf.BoolVar(&a.flagStats, "stats", false, "print request latency stats on exit")

	root.AddCommand(
		a.indicatorCmd(),
		a.summaryCmd(),
		a.compareCmd(),
		a.trendsCmd(),
		a.indicatorsCmd(),
		a.dashboardCmd(),
		a.regionsCmd(),
		a.formatsCmd(),
		a.infoCmd(),
		a.healthCmd(),
		a.reportCmd(),
		a.exportCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// skip config loading
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "earthpulse %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if a.flagVerbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(a.flagConfig, a.logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.flagBaseURL != "" {
		cfg.APIBaseURL = a.flagBaseURL
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("--base-url: %w", err)
		}
	}
	a.cfg = cfg

	if a.flagStats {
		a.latency = common.NewLatencyTracker(0.01)
	}

	httpClient := common.NewEarthPulseHttpClient(cfg.UserAgent, &http.Client{}, common.StaticToken(cfg.APIToken))
	client := earthdata.NewEarthDataClient(cfg.BaseURL(), cfg.APIVersion, httpClient,
		earthdata.WithLogger(a.logger),
		earthdata.WithLatencyTracker(a.latency),
	)

	opts := []earthdata.ServiceOption{
		earthdata.WithCacheTTL(cfg.CacheTTLDuration()),
		earthdata.WithServiceLogger(a.logger),
	}
	if cfg.DedupInflight {
		opts = append(opts, earthdata.WithInflightDedup())
	}
	a.svc = earthdata.NewEarthDataService(client, opts...)

	a.logger.Debug("earthpulse configured",
		"base_url", cfg.BaseURL(),
		"api_version", cfg.APIVersion,
		"cache_ttl", cfg.CacheTTLDuration(),
		"timeout", cfg.RequestTimeoutDuration(),
	)
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) {
	if a.latency == nil {
		return
	}
	for _, s := range a.latency.AllStats() {
		fmt.Fprintln(cmd.ErrOrStderr(), s.String())
	}
}

func (a *app) region() model.Region {
	if a.flagRegion != "" {
		return model.Region(a.flagRegion)
	}
	return a.cfg.Region()
}

// requestContext applies the configured request timeout to the command's context.
func (a *app) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if timeout := a.cfg.RequestTimeoutDuration(); timeout > 0 {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	return context.WithCancel(cmd.Context())
}

// call runs fn under the request timeout and prints its result.
func (a *app) call(cmd *cobra.Command, fn func(ctx context.Context) (any, error)) error {
	ctx, cancel := a.requestContext(cmd)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, v)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
