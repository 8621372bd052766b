package command

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/maintrack/maintrack/pkg/types"
)

func tablesCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "tables",
		Usage: "list cached tables and their row counts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Tables(ctx)
			if err != nil {
				return err
			}
			log.Debugf("tables: cached=%t count=%d", resp.Cached, len(resp.Tables))
			writeTables(out, resp, time.Now())
			return nil
		},
	}
}

// writeTables prints the summary table followed by the snapshot age line.
func writeTables(out io.Writer, resp types.TablesResponse, now time.Time) {
	if !resp.Cached {
		fmt.Fprintln(out, "No snapshot cached.")
		return
	}

	tw := tablewriter.NewWriter(out)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"Table", "Rows"})
	for _, ti := range resp.Tables {
		tw.Append([]string{ti.Table, strconv.Itoa(ti.Rows)})
	}
	tw.Render()

	built, errB := time.Parse(time.RFC3339, resp.BuiltAt)
	expires, errE := time.Parse(time.RFC3339, resp.ExpiresAt)
	if errB != nil || errE != nil {
		return
	}
	fmt.Fprintf(out, "Built %s, expires %s.\n",
		humanize.RelTime(built, now, "ago", "from now"),
		humanize.RelTime(expires, now, "ago", "from now"))
}
