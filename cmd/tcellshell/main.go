package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tcellshell command failed")
		return 1
	}
	return 0
}

type rootOptions struct {
	configPath string
	pipe       bool
	html       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "tcellshell",
		Short:         "Run a shell with its output and command line kept apart",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath, cmd)
			if err != nil {
				return err
			}
			theme, err := cfg.theme()
			if err != nil {
				return err
			}
			if opts.pipe || !term.IsTerminal(int(os.Stdin.Fd())) {
				return runPipe(cmd.Context(), cfg, theme, opts.html, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return runUI(cmd.Context(), cfg, theme)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/tcellshell/config.yaml)")
	cfg := defaultConfig()
	flags.String("term", cfg.Term, "TERM passed to the shell")
	flags.Int("chunk-size", cfg.ChunkSize, "largest single read of shell output in bytes")
	flags.Duration("completion-timeout", cfg.CompletionTimeout, "how long to wait for the shell to complete a command")
	flags.Int("max-lines", cfg.MaxLines, "output lines kept for scrollback")
	flags.String("log-file", cfg.LogFile, "write logs to this file while the UI is running")
	root.Flags().BoolVar(&opts.pipe, "pipe", false, "read commands from stdin and print the output, even on a terminal")
	root.Flags().BoolVar(&opts.html, "html", false, "in pipe mode, print output as styled HTML spans")

	root.AddCommand(newCompleteCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}
