package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/rapidc/config"
	"github.com/dhamidi/rapidc/java/parser"
	"github.com/dhamidi/rapidc/project"
	"github.com/dhamidi/rapidc/rewrite"
)

func newCheckCmd(cfgFile *string) *cobra.Command {
	var format string
	var watch bool

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Show what a run would rewrite without changing any file",
		Long: `check parses and recognizes every source file like a normal run but writes
nothing and takes no snapshot. The descriptor the run would produce is
printed as XML, or a per-file summary with --format table.`,
		Args: pathArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "xml" && format != "table" {
				return fmt.Errorf("%w: unknown format %q, want xml or table", errUsage, format)
			}
			cfg, err := loadConfig(cmd, *cfgFile, args[0])
			if err != nil {
				return err
			}

			path := args[0]
			if err := runCheck(cmd.OutOrStdout(), cfg, path, format); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			root := path
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				root = filepath.Dir(path)
			}
			w, err := project.NewWatcher(root, cfg.Extension)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			log := commonlog.GetLogger("rapidc")
			log.Noticef("watching %s for changes", root)
			w.Run(ctx, func(changed []string) {
				if err := runCheck(cmd.OutOrStdout(), cfg, path, format); err != nil {
					log.Errorf("%s", err)
				}
			})
			return ignoreCanceled(ctx.Err())
		},
	}

	cmd.Flags().StringVar(&format, "format", "xml", "output format: xml or table")
	cmd.Flags().BoolVar(&watch, "watch", false, "check again whenever a source file changes")

	return cmd
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runCheck(w io.Writer, cfg *config.Config, path, format string) error {
	d := project.NewDriver(append(cfg.DriverOptions(), project.WithDryRun(true))...)
	report, err := d.Run(path)
	if err != nil {
		return err
	}
	if format == "table" {
		renderReport(w, report)
		return nil
	}
	return d.Emit(w)
}

func renderReport(w io.Writer, report *project.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Rewrite", "Offloaded", "Warnings", "Errors", "Status"})

	var rewritten, offloaded, warnings, errs int
	for _, f := range report.Files {
		row := table.Row{f.Path, "-", "-", "-", "-", fileStatus(f)}
		if f.Err == nil && f.Result != nil {
			row[1], row[2], row[3], row[4] = f.Result.Rewritten, f.Result.Offloaded, f.Result.Warnings(), f.Result.Errors()
			rewritten += f.Result.Rewritten
			offloaded += f.Result.Offloaded
			warnings += f.Result.Warnings()
			errs += f.Result.Errors()
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d files", len(report.Files)), rewritten, offloaded, warnings, errs, ""})
	t.Render()
}

func fileStatus(f project.FileReport) string {
	if f.Err != nil {
		var pe *parser.ParseError
		var conflict *rewrite.BackupConflictError
		switch {
		case errors.As(f.Err, &pe):
			return "parse error"
		case errors.As(f.Err, &conflict):
			return "blocked by " + filepath.Base(conflict.Backup)
		}
		return "failed"
	}
	res := f.Result
	switch {
	case res.Changed:
		return "rewrite"
	case res.Offloaded > 0:
		return "offloaded"
	default:
		return "unchanged"
	}
}
