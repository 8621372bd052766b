package command

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/maintrack/maintrack/ctl/internal/client"
)

// DefaultServer is used when neither --server nor MAINTRACK_SERVER is set.
const DefaultServer = "http://localhost:8080"

// GlobalFlags are accepted before any subcommand.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "base URL of maintrack-server",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAINTRACK_SERVER")),
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key sent with /api requests",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAINTRACK_API_KEY")),
		},
		&cli.StringFlag{
			Name:    "header",
			Usage:   "header carrying the API key",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAINTRACK_API_HEADER")),
			Value:   "x-api-key",
		},
		&cli.BoolFlag{
			Name:        "insecure",
			Usage:       "skip TLS certificate verification",
			Sources:     cli.NewValueSourceChain(cli.EnvVar("MAINTRACK_INSECURE")),
			HideDefault: true,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
			Value: 10 * time.Second,
		},
	}
}

// newClient builds a client from the global flags visible to cmd.
func newClient(cmd *cli.Command) (*client.Client, error) {
	return client.New(client.Options{
		Server:   cmd.String("server"),
		APIKey:   cmd.String("api-key"),
		Header:   cmd.String("header"),
		Insecure: cmd.Bool("insecure"),
		Timeout:  cmd.Duration("timeout"),
	})
}
