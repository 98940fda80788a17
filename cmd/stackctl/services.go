package main

import (
	"context"
	"fmt"

	"github.com/arencloud/stackdeck/internal/dynamodb"
	"github.com/arencloud/stackdeck/internal/lambda"
	"github.com/arencloud/stackdeck/internal/s3"
	"github.com/arencloud/stackdeck/internal/sns"
	"github.com/arencloud/stackdeck/internal/sqs"

	"github.com/urfave/cli/v3"
)

func lsCommand(usage string, action cli.ActionFunc, flags ...cli.Flag) *cli.Command {
	return &cli.Command{Name: "ls", Usage: usage, Flags: flags, Action: action}
}

func (a *app) s3Command() *cli.Command {
	return &cli.Command{
		Name:  "s3",
		Usage: "object store",
		Commands: []*cli.Command{
			lsCommand("list buckets, or the objects of BUCKET", a.s3List,
				&cli.StringFlag{Name: "prefix", Usage: "only keys starting with prefix"}),
		},
	}
}

func (a *app) s3List(ctx context.Context, cmd *cli.Command) error {
	f, err := a.factory(ctx)
	if err != nil {
		return err
	}
	cl := s3.NewFromFactory(f, a.logger)
	w := a.table()
	if bucket := cmd.Args().First(); bucket != "" {
		objs, err := cl.ListObjects(ctx, bucket, cmd.String("prefix"))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
		for _, o := range objs {
			mod := ""
			if o.LastModified != nil {
				mod = o.LastModified.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, mod)
		}
		return w.Flush()
	}
	buckets, err := cl.ListContainers(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "BUCKET\tCREATED")
	for _, b := range buckets {
		created := ""
		if b.CreationDate != nil {
			created = b.CreationDate.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\n", b.Name, created)
	}
	return w.Flush()
}

func (a *app) dynamodbCommand() *cli.Command {
	return &cli.Command{
		Name:  "dynamodb",
		Usage: "table store",
		Commands: []*cli.Command{
			lsCommand("list tables", func(ctx context.Context, cmd *cli.Command) error {
				f, err := a.factory(ctx)
				if err != nil {
					return err
				}
				names, err := dynamodb.NewFromFactory(f, a.logger).ListTables(ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(a.out, n)
				}
				return nil
			}),
		},
	}
}

func (a *app) sqsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sqs",
		Usage: "queues",
		Commands: []*cli.Command{
			lsCommand("list queues", func(ctx context.Context, cmd *cli.Command) error {
				f, err := a.factory(ctx)
				if err != nil {
					return err
				}
				urls, err := sqs.NewFromFactory(f, a.logger).ListQueues(ctx)
				if err != nil {
					return err
				}
				w := a.table()
				fmt.Fprintln(w, "NAME\tURL")
				for _, u := range urls {
					fmt.Fprintf(w, "%s\t%s\n", sqs.QueueNameFromURL(u), u)
				}
				return w.Flush()
			}),
		},
	}
}

func (a *app) snsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sns",
		Usage: "topics",
		Commands: []*cli.Command{
			lsCommand("list topics", func(ctx context.Context, cmd *cli.Command) error {
				f, err := a.factory(ctx)
				if err != nil {
					return err
				}
				topics, err := sns.NewFromFactory(f, a.logger).ListTopics(ctx)
				if err != nil {
					return err
				}
				w := a.table()
				fmt.Fprintln(w, "NAME\tARN")
				for _, t := range topics {
					fmt.Fprintf(w, "%s\t%s\n", t.Name, t.ARN)
				}
				return w.Flush()
			}),
		},
	}
}

func (a *app) lambdaCommand() *cli.Command {
	return &cli.Command{
		Name:  "lambda",
		Usage: "functions",
		Commands: []*cli.Command{
			lsCommand("list functions", func(ctx context.Context, cmd *cli.Command) error {
				f, err := a.factory(ctx)
				if err != nil {
					return err
				}
				fns, err := lambda.NewFromFactory(f, a.logger).ListFunctions(ctx)
				if err != nil {
					return err
				}
				w := a.table()
				fmt.Fprintln(w, "NAME\tRUNTIME\tHANDLER\tSTATE")
				for _, fn := range fns {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fn.Name, fn.Runtime, fn.Handler, fn.State)
				}
				return w.Flush()
			}),
		},
	}
}
