package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/config"
	"github.com/mamadbah2/inventory/internal/repository"
	authsvc "github.com/mamadbah2/inventory/internal/service/auth"
	reportingsvc "github.com/mamadbah2/inventory/internal/service/reporting"
	stocksvc "github.com/mamadbah2/inventory/internal/service/stock"
	"github.com/mamadbah2/inventory/pkg/logger"
)

type hashPasswordCmd struct {
	in  io.Reader
	out io.Writer
}

func (*hashPasswordCmd) Name() string     { return "hash-password" }
func (*hashPasswordCmd) Synopsis() string { return "print the bcrypt hash to use as ADMIN_PASSWORD_HASH" }
func (*hashPasswordCmd) Usage() string {
	return `hash-password [<password>]

  Hashes the password given as argument, or the first line of standard input.
`
}

func (*hashPasswordCmd) SetFlags(*flag.FlagSet) {}

func (c *hashPasswordCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password := f.Arg(0)
	if password == "" {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		return subcommands.ExitUsageError
	}

	hash, err := authsvc.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(c.out, hash)
	return subcommands.ExitSuccess
}

type reconcileCmd struct {
	out io.Writer
	fix bool
}

func (*reconcileCmd) Name() string { return "reconcile" }
func (*reconcileCmd) Synopsis() string {
	return "compare item quantities with the transaction log"
}
func (*reconcileCmd) Usage() string {
	return `reconcile [-fix]

  Lists every product whose item quantity differs from the balance derived from
  its purchases and sales. With -fix the item quantity is set to the derived
  balance, or zero when the balance is negative.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.fix, "fix", false, "Overwrite drifting item quantities with the derived balance.")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.close()

	drift, err := app.reporting.RunReconcile(ctx, c.fix)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if len(drift) == 0 {
		fmt.Fprintln(c.out, "no drift")
		return subcommands.ExitSuccess
	}
	for _, d := range drift {
		status := "drift"
		if d.Fixed {
			status = "fixed"
		}
		fmt.Fprintf(c.out, "%s\t%s\tledger=%d\tlog=%d\n", status, d.Product, d.Ledger, d.Derived)
	}
	if c.fix {
		return subcommands.ExitSuccess
	}
	return subcommands.ExitFailure
}

type reportCmd struct {
	out     io.Writer
	asJSON  bool
	publish bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print the current stock report" }
func (*reportCmd) Usage() string {
	return `report [-json] [-publish]

  Prints the stock report. With -publish the report is also saved and sent to
  the configured spreadsheet and alert recipient, like the scheduled job does.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "Print the full report as JSON.")
	f.BoolVar(&c.publish, "publish", false, "Save and distribute the report.")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.close()

	build := app.stock.Report
	if c.publish {
		build = app.reporting.GenerateStockReport
	}
	report, err := build(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	fmt.Fprintln(c.out, app.reporting.Summary(report))
	return subcommands.ExitSuccess
}

// app holds the services the stock commands share. Optional integrations other than
// the storage are left out.
type app struct {
	stock     *stocksvc.Service
	reporting *reportingsvc.Service
	close     func()
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, *cfg, log.Named("repo"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	stock := stocksvc.NewService(store, nil, cfg.Stock.LowStockThreshold, log.Named("svc.stock"))
	reporting := reportingsvc.NewService(stock, store, reportingsvc.Options{Currency: cfg.Reporting.Currency}, log.Named("svc.reporting"))

	return &app{
		stock:     stock,
		reporting: reporting,
		close: func() {
			if err := store.Close(context.Background()); err != nil {
				log.Error("failed to close storage", zap.Error(err))
			}
			_ = log.Sync()
		},
	}, nil
}
