// Command stackctl manages the LocalStack instance list and takes a quick
// look at the services of the current instance from a terminal. It shares
// the server's database, so changes show up in the console.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout))
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) int {
	a := &app{in: in, out: out}
	if err := a.command().Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "stackctl:", err)
		return 1
	}
	return 0
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "stackctl",
		Usage:   "manage LocalStack instances and inspect their services",
		Version: versionString(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-driver",
				Usage:   "database driver (sqlite|postgres)",
				Value:   "sqlite",
				Sources: cli.NewValueSourceChain(cli.EnvVar("DB_DRIVER")),
			},
			&cli.StringFlag{
				Name:    "db-path",
				Usage:   "sqlite database file",
				Value:   "data/stackdeck.db",
				Sources: cli.NewValueSourceChain(cli.EnvVar("DB_PATH")),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres connection string",
				Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_URL"), cli.EnvVar("DB_DSN")),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug|info|error)",
				Value:   "error",
				Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL")),
			},
		},
		Before: a.open,
		Commands: []*cli.Command{
			a.instancesCommand(),
			a.configCommand(),
			a.s3Command(),
			a.dynamodbCommand(),
			a.sqsCommand(),
			a.snsCommand(),
			a.lambdaCommand(),
		},
	}
}
