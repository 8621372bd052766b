package command

import (
	"context"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/maintrack/maintrack/ctl/internal/client"
)

func statsCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show snapshot cache counters",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			mfs, err := c.Metrics(ctx)
			if err != nil {
				return err
			}
			log.Debugf("stats: scraped %d metric families", len(mfs))
			writeStats(out, client.StatsFrom(mfs))
			return nil
		},
	}
}

func writeStats(out io.Writer, s client.Stats) {
	tw := tablewriter.NewWriter(out)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"Metric", "Value"})
	tw.AppendBulk([][]string{
		{"cache hits", humanize.Comma(int64(s.Hits))},
		{"cache misses", humanize.Comma(int64(s.Misses))},
		{"hit ratio", fmt.Sprintf("%.1f%%", s.HitRatio()*100)},
		{"builds", humanize.Comma(int64(s.Builds))},
		{"build failures", humanize.Comma(int64(s.BuildFailures))},
		{"mean build time", fmt.Sprintf("%.3fs", s.MeanBuild())},
	})
	tw.Render()
}
