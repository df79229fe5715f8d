// bootgen [gen], bootgen gen
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/qobs-build/bootgen/internal/builder"
	"github.com/qobs-build/bootgen/internal/msg"
	"github.com/qobs-build/bootgen/internal/platform"
	"github.com/qobs-build/bootgen/internal/vcs"
	"github.com/spf13/cobra"
)

// commitPositionHeader is written below the output directory
var commitPositionHeader = filepath.Join("tools", "gn", "last_commit_position.h")

var (
	flagPlatform = newPlatformValue()
	flagHost     = newPlatformValue()
)

var (
	flagDebug                bool
	flagUseLTO               bool
	flagUseICF               bool
	flagNoLastCommitPosition bool
	flagOutPath              string
	flagNoStrip              bool
	flagTargets              string
	flagRoot                 string
	flagDiff                 bool
	flagBuild                bool
	flagVerbose              bool
)

// genConfig is everything a gen run needs, resolved from the flags
type genConfig struct {
	target, host platform.Platform
	opts         builder.Options
}

// hostPlatform detects the platform bootgen runs on
var hostPlatform = platform.Host

func resolveGenConfig(cmd *cobra.Command) (*genConfig, error) {
	hostDefault, err := hostPlatform()
	if err != nil && !flagPlatform.IsSet() {
		return nil, fmt.Errorf("%w: %w", builder.ErrConfig, err)
	}
	target, err := platformOr(&flagPlatform, hostDefault)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", builder.ErrConfig, err)
	}
	host, err := platformOr(&flagHost, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", builder.ErrConfig, err)
	}

	root, err := filepath.Abs(flagRoot)
	if err != nil {
		return nil, err
	}
	out := flagOutPath
	if out == "" {
		out = filepath.Join(root, "out")
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	opts := builder.Options{
		Debug:       flagDebug,
		UseLTO:      flagUseLTO,
		UseICF:      flagUseICF,
		OutDir:      out,
		RepoRoot:    root,
		EmitterPath: exe,
		TargetsFile: flagTargets,

		NoLastCommitPosition: flagNoLastCommitPosition,
	}
	if cmd.Flags().Changed("no-strip") {
		noStrip := flagNoStrip
		opts.NoStrip = &noStrip
	}

	return &genConfig{target: target, host: host, opts: opts}, nil
}

func writeCommitPosition(cfg *genConfig) error {
	version, err := vcs.CommitPosition(cfg.opts.RepoRoot)
	if err != nil {
		msg.Warn("%v", err)
		version = vcs.UnknownPosition
	}
	path := filepath.Join(cfg.opts.OutDir, commitPositionHeader)
	written, err := vcs.WriteHeader(path, vcs.HeaderGuard, version)
	if err != nil {
		return err
	}
	if written {
		msg.Debug("wrote %s (%s)", path, version)
	}
	return nil
}

func doGen(cmd *cobra.Command, args []string) {
	msg.Verbose = flagVerbose

	cfg, err := resolveGenConfig(cmd)
	if err != nil {
		msg.Fatal("%v", err)
	}
	table, err := builder.LoadTable(cfg.target, cfg.opts)
	if err != nil {
		msg.Fatal("%v", err)
	}

	e := builder.NewEmitter(cfg.target, cfg.host, cfg.opts, table, os.LookupEnv, runtime.GOARCH)
	out, err := e.Generate()
	if err != nil {
		msg.Fatal("%v", err)
	}

	if flagDiff {
		d, err := e.Diff(out)
		if err != nil {
			msg.Fatal("%v", err)
		}
		if d == "" {
			msg.Info("build.ninja is up to date")
			return
		}
		fmt.Fprint(msg.Out, d)
		return
	}

	msg.Step("Generating", "build.ninja for %s in %s", cfg.target, cfg.opts.OutDir)
	if !cfg.opts.NoLastCommitPosition {
		if err := writeCommitPosition(cfg); err != nil {
			msg.Fatal("%v", err)
		}
	}
	if err := e.Write(out); err != nil {
		msg.Fatal("%v", err)
	}

	if flagBuild {
		msg.Step("Building", "with ninja")
		if err := e.Invoke(cmd.Context()); err != nil {
			msg.Fatal("%v", err)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "bootgen",
	Short: "Bootstrap build file generator for GN",
	Long:  `Generates build.ninja files that build GN from source, without GN.`,
	Args:  cobra.NoArgs,
	Run:   doGen,
}

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate build.ninja",
	Long:  `Generate build.ninja and build.ninja.d in the output directory. This is the default command.`,
	Args:  cobra.NoArgs,
	Run:   doGen,
}

func init() {
	addGenFlags(rootCmd)

	// bootgen gen subcommand, re-invoked by the regen rule
	rootCmd.AddCommand(genCmd)
	addGenFlags(genCmd)
}

func addGenFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&flagDebug, "debug", "d", false, "Do a debug build")
	f.Var(&flagPlatform, "platform", "Target platform, one of "+flagPlatform.HelpString()+" (default: host)")
	f.Var(&flagHost, "host", "Host platform, one of "+flagHost.HelpString()+" (default: target)")
	f.BoolVar(&flagUseLTO, "use-lto", false, "Enable the use of LTO")
	f.BoolVar(&flagUseICF, "use-icf", false, "Enable the use of Identical Code Folding")
	f.BoolVar(&flagNoLastCommitPosition, "no-last-commit-position", false, "Do not generate last_commit_position.h")
	f.StringVar(&flagOutPath, "out-path", "", "The path to generate the build files in (default: <root>/out)")
	f.BoolVar(&flagNoStrip, "no-strip", false, "Don't strip release build. Useful for profiling")
	f.StringVar(&flagTargets, "targets", "", "Read targets from this TOML file instead of the built-in table")
	f.StringVar(&flagRoot, "root", ".", "Repository root that sources and templates are resolved against")
	f.BoolVar(&flagDiff, "diff", false, "Print how build.ninja would change instead of writing it")
	f.BoolVar(&flagBuild, "build", false, "Run ninja after generating")
	f.BoolVarP(&flagVerbose, "verbose", "v", false, "Print debug messages")
	cmd.RegisterFlagCompletionFunc("platform", flagPlatform.CompletionFunc())
	cmd.RegisterFlagCompletionFunc("host", flagHost.CompletionFunc())
	cmd.MarkFlagsMutuallyExclusive("diff", "build")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
