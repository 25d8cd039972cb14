package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"git.sr.ht/~ghost08/tcell-shell/termutil"
	"pkt.systems/pslog"
)

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <command line>",
		Short: "Print what the shell completes a command line to",
		Long: "Starts a shell, asks it to complete the command line and prints the\n" +
			"completed line. When the completion is ambiguous the candidates are\n" +
			"printed instead, one per line.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath, cmd)
			if err != nil {
				return err
			}
			return runComplete(cmd.Context(), cfg, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

func runComplete(ctx context.Context, cfg config, prefix string, out io.Writer) error {
	sh := cfg.newShell()
	sh.Logger = pslog.Ctx(ctx)
	if err := sh.Start(nil); err != nil {
		return err
	}
	defer sh.Close()

	res, err := sh.Complete(ctx, prefix)
	if err == nil && res.Ambiguous {
		res, err = sh.Complete(ctx, prefix)
	}
	switch {
	case errors.Is(err, termutil.ErrNoCompletion):
		return fmt.Errorf("no completion for %q", prefix)
	case err != nil:
		return err
	}
	return printCompletion(out, res)
}

func printCompletion(out io.Writer, res termutil.CompletionResult) error {
	if res.Stage == termutil.StageSecond {
		for _, c := range res.Candidates {
			if _, err := fmt.Fprintln(out, c); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(out, res.Line())
	return err
}
