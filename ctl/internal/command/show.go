package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/maintrack/maintrack/pkg/types"
)

func showCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print one cached table",
		ArgsUsage: "<table>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the raw view as JSON",
				HideDefault: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			table := cmd.Args().First()
			if table == "" {
				return errors.New("show: table name is required")
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			v, err := c.View(ctx, table)
			if err != nil {
				return err
			}
			log.Debugf("show: table=%s rows=%d", v.Table, len(v.Rows))

			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			writeView(out, v)
			return nil
		},
	}
}

func writeView(out io.Writer, v types.View) {
	if len(v.Rows) == 0 {
		fmt.Fprintf(out, "No data found for table %s\n", v.Table)
		return
	}
	tw := tablewriter.NewWriter(out)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(v.Columns)
	tw.AppendBulk(v.Rows)
	tw.Render()
}
