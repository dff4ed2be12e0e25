package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

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
		pslog.Ctx(ctx).With("err", err).Error("tailpane command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	flags := &sessionFlags{}
	root := &cobra.Command{
		Use:           "tailpane",
		Short:         "Follow files and commands in self-sizing terminal panes",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, flags, nil)
		},
	}
	flags.register(root)

	root.AddCommand(newFileCmd(flags))
	root.AddCommand(newCommandCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}
