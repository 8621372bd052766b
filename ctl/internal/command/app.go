package command

import (
	"io"

	"github.com/urfave/cli/v3"
)

// NewApp returns the root command. Command output goes to out.
func NewApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "maintrackctl",
		Usage:  "Inspect a running maintrack-server",
		Flags:  GlobalFlags(),
		Writer: out,
		Commands: []*cli.Command{
			tablesCommand(out),
			showCommand(out),
			statsCommand(out),
		},
	}
}
