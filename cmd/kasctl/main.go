// Command kasctl runs maintenance tasks against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rongwang/kasciraya-server/internal/config"
	"github.com/rongwang/kasciraya-server/internal/ledger"
	"github.com/rongwang/kasciraya-server/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Globals are handed to every command's Run method
type Globals struct {
	Config *config.Config
	Out    io.Writer
}

var cli struct {
	Migrate      MigrateCmd      `cmd:"" help:"Apply the schema migrations."`
	Seed         SeedCmd         `cmd:"" help:"Load the demo data set into an empty store."`
	HashPassword HashPasswordCmd `cmd:"" help:"Print the bcrypt hash of a password."`
	Report       ReportCmd       `cmd:"" help:"Print the wallet balances a user can see."`
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	if g.Config.Database.Driver == config.DriverMemory {
		return errors.New("the memory driver has no schema to migrate")
	}
	if err := config.RunMigrations(g.Config); err != nil {
		return err
	}
	fmt.Fprintln(g.Out, "migrations applied")
	return nil
}

type SeedCmd struct{}

func (c *SeedCmd) Run(g *Globals) error {
	if g.Config.Database.Driver == config.DriverMemory {
		return errors.New("seeding the memory driver would not outlive this process")
	}
	repo, err := repository.Open(g.Config)
	if err != nil {
		return err
	}
	defer repo.Close()

	res, err := repository.Seed(context.Background(), repo, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(g.Out, "seeded %d users, %d wallets, %d categories, %d transactions\n",
		len(res.Users), len(res.Wallets), len(res.Categories), len(res.Transactions))
	return nil
}

type HashPasswordCmd struct {
	Password string `arg:"" help:"Plain text password."`
	Cost     int    `help:"bcrypt cost." default:"10"`
}

func (c *HashPasswordCmd) Run(g *Globals) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), c.Cost)
	if err != nil {
		return err
	}
	fmt.Fprintln(g.Out, string(hash))
	return nil
}

type ReportCmd struct {
	Username string `arg:"" help:"Account whose view is reported."`
}

func (c *ReportCmd) Run(g *Globals) error {
	repo, err := repository.Open(g.Config)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	user, err := repo.GetUserByUsername(ctx, c.Username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user named %q", c.Username)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		return err
	}
	scope := ledger.NewScope(user, snap.Wallets, snap.Grants)
	wallets := scope.Wallets(snap.Wallets)
	txs := scope.Transactions(snap.Transactions)

	w := tabwriter.NewWriter(g.Out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Wallet\tBalance\t")
	for _, b := range ledger.Balances(wallets, txs) {
		fmt.Fprintf(w, "%s\t%d\t\n", b.Wallet.Name, b.Balance)
	}
	fmt.Fprintf(w, "Total\t%d\t\n", ledger.TotalBalance(wallets, txs))

	month := ledger.CurrentMonth(time.Now())
	totals := ledger.PeriodTotals(txs, month)
	fmt.Fprintf(w, "Income this month\t%d\t\n", totals.Income)
	fmt.Fprintf(w, "Expense this month\t%d\t\n", totals.Expense)
	return w.Flush()
}

func main() {
	_ = godotenv.Load()

	ctx := kong.Parse(&cli,
		kong.Name("kasctl"),
		kong.Description("Kas Ciraya maintenance tool."),
		kong.UsageOnError(),
	)

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		ctx.FatalIfErrorf(err)
	}

	err := ctx.Run(&Globals{Config: cfg, Out: os.Stdout})
	ctx.FatalIfErrorf(err)
}
