package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/darkbear/internal/domain"
	"github.com/mtlprog/darkbear/internal/export"
	"github.com/mtlprog/darkbear/internal/journal"
	"github.com/mtlprog/darkbear/internal/quote"
	"github.com/mtlprog/darkbear/internal/render"
	"github.com/mtlprog/darkbear/internal/valuation"
)

var ledgerFlag = &cli.StringFlag{
	Name:    "ledger",
	Aliases: []string{"l"},
	Usage:   "path to the JSON transaction ledger",
	Value:   "ledger.json",
}

var quotesFlag = &cli.StringFlag{
	Name:    "quotes",
	Aliases: []string{"q"},
	Usage:   "path to a JSON quotes file; positions are valued at zero without one",
}

func renderOptions(c *cli.Context) render.Options {
	return render.Options{Currency: c.String("currency"), Private: c.Bool("private")}
}

// valuateFiles values the ledger file against the quotes file.
func valuateFiles(c *cli.Context) (domain.PortfolioValuation, []domain.Transaction, error) {
	engine, err := engineFrom(c)
	if err != nil {
		return domain.PortfolioValuation{}, nil, err
	}
	repo, err := journal.LoadFile(c.String("ledger"))
	if err != nil {
		return domain.PortfolioValuation{}, nil, err
	}
	txs, err := repo.List(c.Context)
	if err != nil {
		return domain.PortfolioValuation{}, nil, err
	}

	quotes := domain.Quotes{}
	if path := c.String("quotes"); path != "" {
		if quotes, err = quote.LoadFile(path); err != nil {
			return domain.PortfolioValuation{}, nil, err
		}
	}

	txs = journal.Chronological(txs)
	return valuation.Assemble(engine, txs, quotes, time.Now()), txs, nil
}

func positionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "positions",
		Usage: "print open positions computed from a ledger file",
		Flags: []cli.Flag{ledgerFlag, quotesFlag},
		Action: func(c *cli.Context) error {
			val, _, err := valuateFiles(c)
			if err != nil {
				return err
			}
			if err := render.Positions(c.App.Writer, val.Positions, renderOptions(c)); err != nil {
				return err
			}
			render.Warnings(c.App.ErrWriter, val.Warnings)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print portfolio totals and allocation computed from a ledger file",
		Flags: []cli.Flag{ledgerFlag, quotesFlag},
		Action: func(c *cli.Context) error {
			val, _, err := valuateFiles(c)
			if err != nil {
				return err
			}
			if err := render.Stats(c.App.Writer, val, renderOptions(c)); err != nil {
				return err
			}
			render.Warnings(c.App.ErrWriter, val.Warnings)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write positions, totals and the journal to an Excel workbook",
		Flags: []cli.Flag{
			ledgerFlag,
			quotesFlag,
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output .xlsx path", Value: "portfolio.xlsx"},
		},
		Action: func(c *cli.Context) error {
			val, txs, err := valuateFiles(c)
			if err != nil {
				return err
			}
			if c.Bool("private") {
				val, txs = render.Mask(val), nil
			}

			f, err := os.Create(c.String("out"))
			if err != nil {
				return fmt.Errorf("creating workbook: %w", err)
			}
			if err := export.WriteWorkbook(f, val, txs); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing workbook: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "wrote %d positions to %s\n", len(val.Positions), c.String("out"))
			return nil
		},
	}
}

// withLedger runs fn against the journal service over the ledger file and
// saves the file afterwards.
func withLedger(c *cli.Context, fn func(*journal.Service) error) error {
	engine, err := engineFrom(c)
	if err != nil {
		return err
	}
	path := c.String("ledger")
	repo, err := journal.LoadFile(path)
	if err != nil {
		return err
	}
	if err := fn(journal.NewService(repo, engine)); err != nil {
		return err
	}
	return repo.SaveFile(path)
}

func txCommand() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "edit the transaction ledger file",
		Flags: []cli.Flag{ledgerFlag},
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "record a trade",
				ArgsUsage: "BUY|SELL SYMBOL QUANTITY PRICE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "trade date (YYYY-MM-DD), defaults to today"},
					&cli.StringFlag{Name: "name", Usage: "display name"},
					&cli.StringFlag{Name: "notes"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 4 {
						return errors.New("usage: tx add BUY|SELL SYMBOL QUANTITY PRICE")
					}
					qty, err := decimal.NewFromString(c.Args().Get(2))
					if err != nil {
						return fmt.Errorf("invalid quantity %q: %w", c.Args().Get(2), err)
					}
					price, err := decimal.NewFromString(c.Args().Get(3))
					if err != nil {
						return fmt.Errorf("invalid price %q: %w", c.Args().Get(3), err)
					}
					return withLedger(c, func(svc *journal.Service) error {
						tx, err := svc.Add(c.Context, journal.NewTransaction{
							Side:     c.Args().Get(0),
							Symbol:   c.Args().Get(1),
							Quantity: qty,
							Price:    price,
							Date:     c.String("date"),
							Name:     c.String("name"),
							Notes:    c.String("notes"),
						})
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "added %s %s %s %s @ %s\n", tx.ID, tx.Side, tx.Symbol, tx.Quantity, tx.Price)
						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "print the ledger oldest first",
				Action: func(c *cli.Context) error {
					repo, err := journal.LoadFile(c.String("ledger"))
					if err != nil {
						return err
					}
					txs, err := journal.NewService(repo, nil).List(c.Context)
					if err != nil {
						return err
					}
					return printTransactions(c, txs)
				},
			},
			{
				Name:      "delete",
				Usage:     "remove a trade by id",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("usage: tx delete ID")
					}
					return withLedger(c, func(svc *journal.Service) error {
						if err := svc.Delete(c.Context, c.Args().First()); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "deleted %s\n", c.Args().First())
						return nil
					})
				},
			},
		},
	}
}

func printTransactions(c *cli.Context, txs []domain.Transaction) error {
	private := c.Bool("private")
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSIDE\tSYMBOL\tQTY\tPRICE")
	for _, tx := range txs {
		qty, price := tx.Quantity.String(), tx.Price.String()
		if private {
			qty, price = render.Hidden, render.Hidden
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date.Format(domain.DateLayout), tx.Side, tx.Symbol, qty, price)
	}
	return tw.Flush()
}

func printQuotes(c *cli.Context, quotes domain.Quotes) error {
	symbols := lo.Keys(quotes)
	sort.Strings(symbols)
	currency := c.String("currency")
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\t24H\tPROVIDER\tUPDATED")
	for _, sym := range symbols {
		q := quotes[sym]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", sym, render.Money(q.Price, currency), render.Percent(q.Change24h), q.Provider, q.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
