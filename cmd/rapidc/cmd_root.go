package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/rapidc/catalog"
	"github.com/dhamidi/rapidc/config"
	"github.com/dhamidi/rapidc/offload"
	"github.com/dhamidi/rapidc/project"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "rapidc <path>",
		Short: "Rewrite @Remote Java methods to dispatch through a remote runtime",
		Long: `rapidc rewrites every method annotated with @Remote in a Java file or
project tree. Each method becomes a stub that asks the remote runtime to run
it and falls back to a private localLocal_<name> copy of the original body.
The previous contents of every rewritten file are kept next to it as
<file>.old, and a directory is first copied to the backup root.

The XML descriptor of all offloadable methods is written to standard output.`,
		Args:          pathArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, cfgFile, args[0])
			if err != nil {
				return err
			}

			d := project.NewDriver(cfg.DriverOptions()...)
			report, err := d.Run(args[0])
			if err != nil {
				return err
			}
			if err := d.Emit(cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("write descriptor: %w", err)
			}
			printSummary(cmd.ErrOrStderr(), report)
			return nil
		},
	}

	addConfigFlags(cmd.PersistentFlags(), &cfgFile)

	cmd.AddCommand(newCheckCmd(&cfgFile))
	cmd.AddCommand(newRestoreCmd(&cfgFile))
	cmd.AddCommand(newLSPCmd(&cfgFile))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func pathArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one path, got %d", errUsage, len(args))
	}
	return nil
}

func addConfigFlags(fs *pflag.FlagSet, cfgFile *string) {
	fs.StringVar(cfgFile, "config", "", "configuration file (default: "+config.FileName+" in the working or project directory)")
	fs.String("backup-root", "", "directory receiving project snapshots (default: ~/"+project.DefaultBackupDir+")")
	fs.String("extension", project.DefaultExtension, "suffix of the source files to rewrite")
	fs.String("local-prefix", offload.DefaultLocalPrefix, "name prefix of the private methods keeping the original bodies")
	fs.String("application", catalog.DefaultApplicationName, "application name written to the descriptor")
	fs.String("runtime-handle", offload.DefaultHandleType, "qualified name of the runtime handle type")
	fs.String("runtime-accessor", offload.DefaultAccessor, "static method returning the runtime handle")
	fs.String("runtime-available", offload.DefaultAvailableMethod, "handle method telling whether remote execution is possible")
	fs.String("runtime-execute", offload.DefaultExecuteMethod, "handle method running a method remotely")
	fs.String("runtime-failure", offload.DefaultFailureType, "qualified name of the remote failure exception")
	fs.Bool("xml-verbatim", false, "write descriptor values without escaping <, > and &")
	fs.CountP("verbose", "v", "log more (repeat for debug output)")
}

// loadConfig reads the configuration for a command working on path and
// sets up logging from it.
func loadConfig(cmd *cobra.Command, cfgFile, path string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	commonlog.Configure(cfg.Verbose, nil)
	if cfg.File != "" {
		commonlog.GetLogger("rapidc").Debugf("using config file %s", cfg.File)
	}
	return cfg, nil
}

func printSummary(w io.Writer, report *project.Report) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	files := 0
	for _, f := range report.Files {
		if f.Err == nil && f.Result != nil && f.Result.Changed {
			files++
		}
	}
	green.Fprintf(w, "rewrote %d methods in %d files\n", report.Rewritten(), files)
	if n := report.Failed(); n > 0 {
		red.Fprintf(w, "%d files failed:\n", n)
		for _, f := range report.Files {
			if f.Err != nil {
				fmt.Fprintf(w, "  %s\n", f.Err)
			}
		}
	}
	for _, p := range report.Skipped {
		yellow.Fprintf(w, "skipped %s\n", p)
	}
	if report.Snapshot != "" && report.SnapshotErr == nil {
		fmt.Fprintf(w, "snapshot: %s\n", filepath.Clean(report.Snapshot))
	}
	if report.SnapshotErr != nil {
		yellow.Fprintf(w, "no new snapshot: %s\n", report.SnapshotErr)
	}
}
