package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/forex/internal/config"
	"github.com/mtlprog/forex/internal/domain"
	"github.com/mtlprog/forex/internal/export"
	"github.com/mtlprog/forex/internal/ledger"
	"github.com/mtlprog/forex/internal/store"
)

const fileStoreKey = "file"

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "value a JSON transaction file and print the dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON array of transactions", Required: true},
			&cli.BoolFlag{Name: "offline", Usage: "use the static fallback rates"},
			&cli.BoolFlag{Name: "json", Usage: "print the dashboard as JSON"},
		},
		Action: func(c *cli.Context) error {
			dash, err := fileDashboard(c.Context, c.String("file"), c.Bool("offline"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(dash)
			}
			return printDashboard(c.App.Writer, dash)
		},
	}
}

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "fetch and print current TWD rates",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "offline", Usage: "skip the live feed"},
		},
		Action: func(c *cli.Context) error {
			d, err := newDeps(c.Context, config.Load())
			if err != nil {
				return err
			}
			defer d.Close()

			snap, err := d.rateService(c.Bool("offline")).Rates(c.Context)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "source: %s (live=%t)\n", snap.Source, snap.Live)
			for _, code := range slices.Sorted(maps.Keys(snap.Rates)) {
				fmt.Fprintf(w, "%s\t%s\n", code, domain.FormatRate(snap.Rates[code]))
			}
			return w.Flush()
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the valued ledger to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON array of transactions (default: configured store)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "forex.xlsx", Usage: "output path"},
			&cli.BoolFlag{Name: "offline", Usage: "use the static fallback rates"},
		},
		Action: func(c *cli.Context) error {
			var (
				dash ledger.Dashboard
				err  error
			)
			if file := c.String("file"); file != "" {
				dash, err = fileDashboard(c.Context, file, c.Bool("offline"))
			} else {
				dash, err = storeDashboard(c.Context, c.Bool("offline"))
			}
			if err != nil {
				return err
			}

			out, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("creating %s: %w", c.String("out"), err)
			}
			defer out.Close()

			if err := export.Write(out, dash.Stats, dash.Transactions); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
			return nil
		},
	}
}

// fileDashboard values the transactions in a JSON file.
func fileDashboard(ctx context.Context, path string, offline bool) (ledger.Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ledger.Dashboard{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var txs []domain.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return ledger.Dashboard{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	cfg := config.Load()
	cfg.DatabaseURL = ""
	d, err := newDeps(ctx, cfg)
	if err != nil {
		return ledger.Dashboard{}, err
	}
	defer d.Close()

	mem := store.NewMemoryStore()
	if err := mem.Save(ctx, fileStoreKey, txs); err != nil {
		return ledger.Dashboard{}, err
	}
	return ledger.NewService(mem, d.rateService(offline), fileStoreKey, cfg.Currencies).Dashboard(ctx)
}

// storeDashboard values the snapshot in the configured store.
func storeDashboard(ctx context.Context, offline bool) (ledger.Dashboard, error) {
	cfg := config.Load()
	d, err := newDeps(ctx, cfg)
	if err != nil {
		return ledger.Dashboard{}, err
	}
	defer d.Close()

	st, err := d.store(ctx)
	if err != nil {
		return ledger.Dashboard{}, err
	}
	return ledger.NewService(st, d.rateService(offline), cfg.StoreKey, cfg.Currencies).Dashboard(ctx)
}

func printDashboard(out io.Writer, dash ledger.Dashboard) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Currency\tQuantity\tAvgCost\tRate\tUnrealized\tRealized\t")
	for _, item := range dash.Stats.Items {
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\t%s\t%s\t\n",
			item.Currency,
			item.TotalQuantity,
			domain.FormatRate(item.AvgCost),
			domain.FormatRate(item.CurrentRate),
			domain.FormatMoney(item.UnrealizedPL),
			domain.FormatMoney(item.RealizedPL),
		)
	}
	fmt.Fprintf(w, "Total\t\t\t\t%s\t%s\t\n",
		domain.FormatMoney(dash.Stats.TotalUnrealizedPL),
		domain.FormatMoney(dash.Stats.TotalRealizedPL),
	)
	if err := w.Flush(); err != nil {
		return err
	}

	source := dash.RatesSource
	if source == "" {
		source = "unavailable"
	}
	_, err := fmt.Fprintf(out, "rates: %s\n", source)
	return err
}
