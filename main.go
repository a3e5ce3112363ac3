package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"blockmerge/pkg/blocklist"
	"blockmerge/pkg/config"
	"blockmerge/pkg/fetch"
	"blockmerge/pkg/logger"
	"blockmerge/pkg/version"
	"blockmerge/pkg/watch"
)

type app struct {
	v          *viper.Viper
	fs         afero.Fs
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	cfg        *config.Config
	log        *slog.Logger
	logCloser  io.Closer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		v:      config.NewViper(),
		fs:     afero.NewOsFs(),
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blockmerge",
		Short: "Merge categorized domain blocklists into a dnscrypt-proxy configuration",
		Long: `blockmerge combines the blocklist catalogs of several publishers, the
dnscrypt-proxy default configuration and local additions into one
domains-blocklist.conf. Every list URL appears once as an active or
disabled line; later occurrences are kept as commented duplicates.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup() },
		RunE:              func(cmd *cobra.Command, _ []string) error { return a.generate() },
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to the TOML configuration file")
	flags.StringP("output", "o", "", "output file, - for stdout")
	flags.StringP("input-dir", "d", "", "directory holding the source intermediates")
	flags.StringP("baseline", "b", "", "baseline configuration, empty string disables it")
	flags.StringP("local-additions", "l", "", "local additions file, empty string disables it")
	flags.StringP("rules", "r", "", "category rule table, embedded table when unset")
	flags.BoolP("ignore-retrieval-failure", "i", false, "skip sources whose data is missing")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	bindings := map[string]string{
		"output.path":              "output",
		"input.dir":                "input-dir",
		"input.baseline":           "baseline",
		"input.local_additions":    "local-additions",
		"input.rules":              "rules",
		"ignore_retrieval_failure": "ignore-retrieval-failure",
		"logging.level":            "log-level",
	}
	for key, name := range bindings {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "generate",
			Short: "Write the merged blocklist configuration (default)",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.generate() },
		},
		&cobra.Command{
			Use:   "fetch [source...]",
			Short: "Download publisher catalogs into the input directory",
			Long: "Download publisher catalogs into the input directory. Known sources: " +
				strings.Join(fetch.Known(), ", ") + ".",
			RunE: func(cmd *cobra.Command, args []string) error { return a.fetch(cmd.Context(), args) },
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Regenerate whenever an input file changes",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.watch(cmd.Context()) },
		},
		&cobra.Command{
			Use:   "rules",
			Short: "Print the effective category rule table",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, _ []string) error { return a.printRules() },
		},
		&cobra.Command{
			Use:               "version",
			Short:             "Print the version",
			Args:              cobra.NoArgs,
			PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(a.stdout, "blockmerge %s\n", version.BlockmergeVersion)
			},
		},
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	log, closer, err := logger.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.logCloser = cfg, log, closer
	if cfg.File != "" {
		log.Debug("loaded configuration", "path", cfg.File)
	}
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func (a *app) generateOptions() blocklist.Options {
	return blocklist.Options{
		Fs:                     a.fs,
		InputDir:               a.cfg.Input.Dir,
		Sources:                a.cfg.Sources.Order,
		BaselinePath:           a.cfg.Input.Baseline,
		LocalAdditionsPath:     a.cfg.Input.LocalAdditions,
		RulesPath:              a.cfg.Input.Rules,
		OutputPath:             a.cfg.Output.Path,
		Stdout:                 a.stdout,
		IgnoreRetrievalFailure: a.cfg.IgnoreRetrievalFailure,
		Logger:                 a.log,
		ErrorLimit:             a.cfg.Logging.ErrorLimit,
	}
}

func (a *app) generate() error {
	report, err := blocklist.Generate(a.generateOptions())
	if err != nil {
		return err
	}
	a.log.Info("generated blocklist configuration",
		"output", report.Output,
		"active", report.Active,
		"disabled", report.Disabled,
		"duplicates", report.Duplicates,
		"malformed", report.Malformed,
		"bytes", report.Bytes)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(a.stderr, "skipped sources: %s\n", strings.Join(report.Skipped, ", "))
	}
	return nil
}

func (a *app) fetch(ctx context.Context, sources []string) error {
	if len(sources) == 0 {
		sources = a.cfg.Fetch.Sources
	}
	report, err := fetch.Run(ctx, fetch.RunOptions{
		Sources:        sources,
		Concurrency:    a.cfg.Fetch.Concurrency,
		IgnoreFailures: a.cfg.IgnoreRetrievalFailure,
		Store:          blocklist.NewStore(a.fs, a.cfg.Input.Dir),
		Fetch: fetch.Options{
			UserAgent: a.cfg.Fetch.UserAgent,
			Timeout:   a.cfg.Fetch.Timeout,
			Fs:        a.fs,
			CacheDir:  a.cfg.Fetch.CacheDir,
			Logger:    a.log,
			URLs:      a.cfg.Fetch.URLs(),
		},
		Logger: a.log,
	})
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		fmt.Fprintf(a.stderr, "failed sources: %s\n", strings.Join(report.Failed, ", "))
	}
	return nil
}

func (a *app) watch(ctx context.Context) error {
	store := blocklist.NewStore(a.fs, a.cfg.Input.Dir)
	files := make([]string, 0, 3)
	for _, path := range []string{a.cfg.Input.Baseline, a.cfg.Input.LocalAdditions} {
		if path != "" {
			files = append(files, store.Path(path))
		}
	}
	if a.cfg.Input.Rules != "" {
		files = append(files, a.cfg.Input.Rules)
	}

	intermediates := make(map[string]bool, len(a.cfg.Sources.Order))
	for _, source := range a.cfg.Sources.Order {
		intermediates[blocklist.IntermediateFileName(source)] = true
	}

	var exclude []string
	if out := a.cfg.Output.Path; out != "" && out != blocklist.StdoutPath {
		exclude = append(exclude, out)
	}

	a.log.Info("watching inputs", "dir", a.cfg.Input.Dir, "files", len(files))
	return watch.Run(ctx, watch.Options{
		Files:        files,
		Dirs:         []string{a.cfg.Input.Dir},
		Match:        func(name string) bool { return intermediates[name] },
		Exclude:      exclude,
		IgnorePrefix: blocklist.TempFilePrefix,
		Logger:       a.log,
	}, func(context.Context) error { return a.generate() })
}

func (a *app) printRules() error {
	rules, err := blocklist.LoadRules(a.fs, a.cfg.Input.Rules)
	if err != nil {
		return err
	}

	rank := make(map[string]int, len(a.cfg.Sources.Order))
	for i, source := range a.cfg.Sources.Order {
		rank[source] = i
	}
	all := rules.Rules()
	ordered := make([]blocklist.Rule, 0, len(all))
	for _, source := range a.cfg.Sources.Order {
		for _, rule := range all {
			if rule.Source == source {
				ordered = append(ordered, rule)
			}
		}
	}
	for _, rule := range all {
		if _, ok := rank[rule.Source]; !ok {
			ordered = append(ordered, rule)
		}
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tCATEGORY\tCANONICAL\tENABLED")
	for _, rule := range ordered {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", rule.Source, rule.Category, rule.Canonical, rule.Enabled)
	}
	return w.Flush()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := newApp(os.Stdout, os.Stderr)
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
