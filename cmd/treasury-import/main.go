// Command treasury-import loads a treasury workbook into the ledger.
//
//	treasury-import -file tesoreria.xlsx [-dry-run] [-account CODE] [-json]
//	treasury-import -file gs://bucket/tesoreria.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tinoosan/treasury/internal/app"
	"github.com/tinoosan/treasury/internal/config"
	"github.com/tinoosan/treasury/internal/joblock"
	"github.com/tinoosan/treasury/internal/service/importer"
	"github.com/tinoosan/treasury/internal/source"
)

const memoryWarning = "warning: DATABASE_URL is not set; movements go to a temporary in-memory store and are discarded on exit"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	if err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// run parses args, wires the backend described by the environment and
// performs one import. With -json the summary is printed even when the
// import fails.
func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("treasury-import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "workbook path or gs://bucket/object")
	dryRun := fs.Bool("dry-run", false, "report what would be imported without writing")
	account := fs.String("account", "", "treasury account code (default TREASURY_ACCOUNT_CODE)")
	asJSON := fs.Bool("json", false, "print the summary as JSON")
	actor := fs.String("actor", "treasury-import", "name recorded on imported movements")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.FromEnv(getenv)
	if err != nil {
		return err
	}
	code := cfg.AccountCode
	if *account != "" {
		code = *account
	}
	logger := cfg.Logger(stderr)

	src, err := source.Resolve(*file)
	if err != nil {
		return err
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Backend == "memory" && !*dryRun {
		fmt.Fprintln(stderr, memoryWarning)
	}

	release, err := a.Jobs.Acquire(ctx, joblock.Key(code))
	if err != nil {
		return err
	}
	defer release()

	sum, importErr := a.Importer.Import(ctx, src, importer.Options{DryRun: *dryRun, AccountCode: code, Actor: *actor})
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return err
		}
	} else if importErr == nil {
		printSummary(stdout, sum)
	}
	return importErr
}

func printSummary(w io.Writer, s importer.Summary) {
	fmt.Fprintln(w, s.Message)
	fmt.Fprintf(w, "rows processed: %d\n", s.TotalRowsProcessed)
	fmt.Fprintf(w, "imported: %d  skipped: %d  rejected: %d  balance mismatches: %d\n",
		s.MovementsImported, s.MovementsSkipped, s.MovementsRejected, s.BalanceMismatches)
	for _, sh := range s.Sheets {
		fmt.Fprintf(w, "  %-24s %s  movements=%d  opening=%s  closing=%s\n",
			sh.Name, sh.Period, sh.Movements, sh.OpeningBalance, sh.ClosingBalance)
	}
	names := make([]string, 0, len(s.MovementsPerSheet))
	for n := range s.MovementsPerSheet {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) > 0 {
		fmt.Fprintln(w, "movements per sheet:")
		for _, n := range names {
			fmt.Fprintf(w, "  %s: %d\n", n, s.MovementsPerSheet[n])
		}
	}
	fmt.Fprintf(w, "final balance: %s\n", s.FinalBalance)
	for _, m := range s.Warnings {
		fmt.Fprintln(w, "warning:", m)
	}
	for _, m := range s.Errors {
		fmt.Fprintln(w, "error:", m)
	}
}
