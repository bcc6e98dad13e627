package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/gitripper/internal/app"
	"github.com/quantmind-br/gitripper/internal/config"
	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/git"
	"github.com/quantmind-br/gitripper/internal/manifest"
	"github.com/quantmind-br/gitripper/pkg/version"
)

var (
	cfgFile string
	verbose bool

	// Dependencies for testing
	stdin io.Reader = os.Stdin
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gitripper [url...]",
	Short: "Recover exposed .git directories",
	Long: `gitripper downloads the contents of a .git directory that a web server
exposes by mistake, following refs, the index and object references until
nothing new turns up, then checks out the working tree.

Targets come from the arguments, from --input, or one per line on stdin.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ~/.gitripper/config.yaml)")
	flags.StringP("output", "o", config.DefaultOutputDir, "Output directory")
	flags.StringP("input", "i", "", "File with targets (text, one per line, or a YAML/JSON manifest)")
	flags.StringArrayP("header", "H", nil, "Additional request header as name:value (repeatable)")
	flags.IntP("workers", "w", config.DefaultWorkers, "Number of concurrent workers")
	flags.Float64("timeout", config.DefaultTimeout.Seconds(), "Request timeout in seconds")
	flags.StringP("user-agent", "A", config.DefaultUserAgent, `User-Agent header ("random" picks one per worker)`)
	flags.String("proxy", "", "HTTP or SOCKS5 proxy URL")
	flags.Bool("force", false, "Download artifacts again even if they exist")
	flags.Bool("progress", false, "Show a progress spinner")
	flags.Bool("no-checkout", false, "Skip working tree reconstruction")
	flags.String("backend", config.DefaultBackend, `Reconstruction backend ("git" or "go-git")`)
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.directory", flags.Lookup("output"))
	_ = viper.BindPFlag("http.headers", flags.Lookup("header"))
	_ = viper.BindPFlag("concurrency.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("http.user_agent", flags.Lookup("user-agent"))
	_ = viper.BindPFlag("http.proxy", flags.Lookup("proxy"))
	_ = viper.BindPFlag("output.overwrite", flags.Lookup("force"))
	_ = viper.BindPFlag("output.progress", flags.Lookup("progress"))
	_ = viper.BindPFlag("reconstruct.backend", flags.Lookup("backend"))

	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Seconds may be fractional, so the flag is not bound through viper
	if cmd.Flags().Changed("timeout") {
		seconds, _ := cmd.Flags().GetFloat64("timeout")
		cfg.Concurrency.Timeout = secondsToDuration(seconds)
	}

	input, _ := cmd.Flags().GetString("input")
	targets, list, err := collectTargets(args, input, stdin)
	if err != nil {
		return err
	}
	if list != nil {
		app.ApplyManifestOptions(cfg, manifestOverrides(cmd, list.Options))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	force, _ := cmd.Flags().GetBool("force")
	progress, _ := cmd.Flags().GetBool("progress")
	noCheckout, _ := cmd.Flags().GetBool("no-checkout")

	orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
		CommonOptions: domain.CommonOptions{
			Verbose:    verbose,
			Force:      force,
			Progress:   progress,
			NoCheckout: noCheckout,
		},
		Config: cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	report, err := orchestrator.Run(ctx, targets)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			orchestrator.Logger().Warn().Msg("Interrupted")
		}
		return err
	}
	for _, failed := range report.Failed() {
		orchestrator.Logger().Warn().Str("git_dir", failed.GitDir).Err(failed.Err).Msg("Work tree not restored")
	}
	return nil
}

// collectTargets gathers targets from args and the input file. Stdin is read
// only when neither supplies any.
func collectTargets(args []string, input string, in io.Reader) ([]string, *manifest.Config, error) {
	targets := append([]string(nil), args...)

	var list *manifest.Config
	if input != "" {
		var err error
		list, err = manifest.NewLoader().Load(input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load targets: %w", err)
		}
		targets = append(targets, list.Targets...)
	}

	if len(targets) == 0 && in != nil {
		read, err := manifest.ReadTargets(in, true)
		if err != nil {
			return nil, nil, err
		}
		targets = read
	}

	if len(targets) == 0 {
		return nil, nil, domain.ErrNoTargets
	}
	return targets, list, nil
}

// manifestOverrides drops manifest options that an explicit flag already set
func manifestOverrides(cmd *cobra.Command, opts manifest.Options) manifest.Options {
	if cmd.Flags().Changed("workers") {
		opts.Workers = 0
	}
	if cmd.Flags().Changed("output") {
		opts.Output = ""
	}
	return opts
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return config.DefaultTimeout
	}
	return time.Duration(seconds * float64(time.Second))
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  "Verifies the git binary, the output directory and the configuration file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Checking system dependencies...")
		allPassed := true

		cfg, cfgErr := config.Load()
		if cfgErr != nil {
			cfg = config.Default()
		}

		fmt.Fprint(out, "  git binary: ")
		if v, err := checkGit(cmd.Context(), git.NewRunner(cfg.Reconstruct.GitBinary)); err == nil {
			fmt.Fprintf(out, "OK (%s)\n", v)
		} else {
			fmt.Fprintln(out, "NOT FOUND (go-git checkout will be used)")
		}

		fmt.Fprint(out, "  Write permissions: ")
		if checkWritePermissions(cfg.Output.Directory) {
			fmt.Fprintf(out, "OK (%s)\n", cfg.Output.Directory)
		} else {
			fmt.Fprintln(out, "FAILED")
			allPassed = false
		}

		fmt.Fprint(out, "  Config file: ")
		if cfgErr != nil {
			fmt.Fprintf(out, "WARN (%v)\n", cfgErr)
		} else {
			fmt.Fprintln(out, "OK")
		}

		fmt.Fprintln(out)
		if allPassed {
			fmt.Fprintln(out, "All critical checks passed!")
		} else {
			fmt.Fprintln(out, "Some checks failed. Please resolve the issues above.")
		}
		return nil
	},
}

// checkGit returns the version reported by the git binary
func checkGit(ctx context.Context, runner *git.ExecRunner) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return runner.Version(ctx)
}

// checkWritePermissions reports whether files can be created in dir, or in
// its nearest existing ancestor when dir does not exist yet
func checkWritePermissions(dir string) bool {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return false
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".gitripper_write_*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}
