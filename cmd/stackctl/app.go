package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/arencloud/stackdeck/internal/awsclient"
	"github.com/arencloud/stackdeck/internal/config"
	"github.com/arencloud/stackdeck/internal/configstore"
	"github.com/arencloud/stackdeck/internal/db"
	"github.com/arencloud/stackdeck/internal/logging"
	"github.com/arencloud/stackdeck/internal/models"
	"github.com/arencloud/stackdeck/internal/version"

	"github.com/urfave/cli/v3"
)

var errNoInstance = errors.New("no instance selected; run 'stackctl instances use NAME'")

type app struct {
	in     io.Reader
	out    io.Writer
	logger logging.Logger
	store  *configstore.Store
}

func versionString() string { return version.Name + " " + version.Version }

// open connects to the database named by the global flags and loads the
// configuration store before any subcommand runs.
func (a *app) open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := config.Load()
	cfg.DBDriver = cmd.String("db-driver")
	cfg.DBPath = cmd.String("db-path")
	cfg.DBDsn = cmd.String("database-url")

	a.logger = logging.New(cfg.Env)
	logging.SetLevel(cmd.String("log-level"))

	gdb, err := db.Open(cfg, a.logger)
	if err != nil {
		return ctx, fmt.Errorf("open database: %w", err)
	}
	store, err := configstore.New(ctx, db.NewSlotStore(gdb), a.logger)
	if err != nil {
		return ctx, fmt.Errorf("load configuration: %w", err)
	}
	a.store = store
	return ctx, nil
}

// factory builds clients for the current instance.
func (a *app) factory(ctx context.Context) (*awsclient.Factory, error) {
	inst, ok := a.store.Current()
	if !ok {
		return nil, errNoInstance
	}
	return awsclient.New(ctx, inst)
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func (a *app) instancesCommand() *cli.Command {
	return &cli.Command{
		Name:  "instances",
		Usage: "list, select, add and remove LocalStack instances",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list configured instances; * marks the current one",
				Action: a.listInstances,
			},
			{
				Name:      "use",
				Usage:     "select the current instance",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return errors.New("instance name required")
					}
					if !a.store.SetCurrent(ctx, name) {
						return fmt.Errorf("unknown instance %q", name)
					}
					fmt.Fprintf(a.out, "current instance: %s\n", name)
					return nil
				},
			},
			{
				Name:  "add",
				Usage: "register an instance",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "endpoint", Required: true},
					&cli.StringFlag{Name: "region", Value: "us-east-1"},
					&cli.StringFlag{Name: "access-key", Value: "test"},
					&cli.StringFlag{Name: "secret-key", Value: "test"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					inst := models.Instance{
						Name:            cmd.String("name"),
						Endpoint:        cmd.String("endpoint"),
						Region:          cmd.String("region"),
						AccessKeyID:     cmd.String("access-key"),
						SecretAccessKey: cmd.String("secret-key"),
					}
					return a.store.AddInstance(ctx, inst)
				},
			},
			{
				Name:      "remove",
				Usage:     "remove an instance",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return errors.New("instance name required")
					}
					return a.store.RemoveInstance(ctx, name)
				},
			},
		},
	}
}

func (a *app) listInstances(ctx context.Context, cmd *cli.Command) error {
	current := ""
	if inst, ok := a.store.Current(); ok {
		current = inst.Name
	}
	w := a.table()
	fmt.Fprintln(w, "\tNAME\tENDPOINT\tREGION")
	for _, inst := range a.store.Configuration().Instances {
		mark := ""
		if inst.Name == current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, inst.Name, inst.Endpoint, inst.Region)
	}
	return w.Flush()
}

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "export, import or reset the whole configuration",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "print the configuration as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					b, err := a.store.Export()
					if err != nil {
						return err
					}
					if path := cmd.String("out"); path != "" {
						return os.WriteFile(path, append(b, '\n'), 0o600)
					}
					_, err = fmt.Fprintln(a.out, string(b))
					return err
				},
			},
			{
				Name:      "import",
				Usage:     "replace the configuration from a JSON file ('-' reads stdin)",
				ArgsUsage: "FILE",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := cmd.Args().First()
					var data []byte
					var err error
					switch path {
					case "":
						return errors.New("file required")
					case "-":
						data, err = io.ReadAll(a.in)
					default:
						data, err = os.ReadFile(path)
					}
					if err != nil {
						return err
					}
					if err := a.store.Import(ctx, data); err != nil {
						return err
					}
					fmt.Fprintf(a.out, "imported %d instances\n", len(a.store.Configuration().Instances))
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "restore the bundled default configuration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.store.ResetToDefaults(ctx)
				},
			},
		},
	}
}
