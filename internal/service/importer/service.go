// Package importer rebuilds treasury movements from the monthly sheets of a
// treasury workbook. Re-running an import is safe: rows already imported are
// recognised by fingerprint and skipped.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/treasury/internal/catalog"
	"github.com/tinoosan/treasury/internal/classify"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/fingerprint"
	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/metrics"
	"github.com/tinoosan/treasury/internal/reconcile"
	"github.com/tinoosan/treasury/internal/source"
	"github.com/tinoosan/treasury/internal/workbook"
)

// DefaultActor is recorded as creator and approver of imported movements.
const DefaultActor = "import"

// Repo defines read operations needed by the importer.
type Repo interface {
	AccountByCode(ctx context.Context, code string) (ledger.Account, error)
	ListIncomeSources(ctx context.Context) ([]ledger.IncomeSource, error)
	ListExpenseCategories(ctx context.Context) ([]ledger.ExpenseCategory, error)
	MovementExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
}

// Writer defines write operations needed by the importer.
type Writer interface {
	CreateMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error)
}

// Periods reports closed months.
type Periods interface {
	IsMonthClosed(ctx context.Context, year, month int) (bool, error)
}

// PeriodLocker runs fn while holding exclusive locks on the given months.
type PeriodLocker interface {
	WithPeriodLock(ctx context.Context, periods []ledger.Period, fn func(ctx context.Context) error) error
}

// Options control one import run.
type Options struct {
	DryRun      bool
	AccountCode string
	Actor       string
}

// SheetSummary describes one ledger sheet. OpeningBalance is the balance
// carried in from the previous sheet and ClosingBalance the balance after
// this sheet's rows, so consecutive sheets can be checked for continuity.
type SheetSummary struct {
	Name            string           `json:"name"`
	Period          string           `json:"period"`
	Rows            int              `json:"rows"`
	Movements       int              `json:"movements"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	ClosingBalance  decimal.Decimal  `json:"closing_balance"`
	DeclaredOpening *decimal.Decimal `json:"declared_opening_balance,omitempty"`
}

// Summary reports what an import did, or would do in a dry run.
type Summary struct {
	TotalRowsProcessed int             `json:"total_rows_processed"`
	MovementsImported  int             `json:"movements_imported"`
	MovementsSkipped   int             `json:"movements_skipped"`
	MovementsRejected  int             `json:"movements_rejected"`
	BalanceMismatches  int             `json:"balance_mismatches"`
	MovementsPerSheet  map[string]int  `json:"movements_per_sheet"`
	Sheets             []SheetSummary  `json:"sheets"`
	FinalBalance       decimal.Decimal `json:"final_balance"`
	Warnings           []string        `json:"warnings"`
	Errors             []string        `json:"errors"`
	Success            bool            `json:"success"`
	DryRun             bool            `json:"dry_run"`
	Message            string          `json:"message"`
}

// Service runs imports.
type Service interface {
	Import(ctx context.Context, src source.Source, opts Options) (Summary, error)
}

type service struct {
	repo    Repo
	writer  Writer
	periods Periods
	locker  PeriodLocker
	rules   *classify.Table
	policy  reconcile.Policy
	log     *slog.Logger
	now     func() time.Time
}

// Option customises a Service.
type Option func(*service)

// WithRules replaces the embedded classification rules.
func WithRules(t *classify.Table) Option { return func(s *service) { s.rules = t } }

// WithPolicy replaces the default balance tolerance.
func WithPolicy(p reconcile.Policy) Option { return func(s *service) { s.policy = p } }

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option { return func(s *service) { s.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

func New(repo Repo, writer Writer, periods Periods, locker PeriodLocker, opts ...Option) Service {
	s := &service{
		repo:    repo,
		writer:  writer,
		periods: periods,
		locker:  locker,
		policy:  reconcile.Default,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.rules == nil {
		s.rules = classify.Default()
	}
	return s
}

// run carries the state of one import.
type run struct {
	*service
	opts     Options
	src      source.Source
	account  ledger.Account
	resolver *classify.Resolver
	seen     map[string]struct{}
	sum      Summary
	started  time.Time
}

// Import reads the workbook, walks its ledger sheets in month order with a
// running balance and persists new rows. Only a missing or unreadable file,
// a missing account or catalog entry, or a storage failure returns an
// error; everything else becomes a warning on the summary.
func (s *service) Import(ctx context.Context, src source.Source, opts Options) (Summary, error) {
	if opts.AccountCode = strings.TrimSpace(opts.AccountCode); opts.AccountCode == "" {
		opts.AccountCode = catalog.DefaultAccountCode
	}
	if opts.Actor = strings.TrimSpace(opts.Actor); opts.Actor == "" {
		opts.Actor = DefaultActor
	}
	r := &run{
		service: s,
		opts:    opts,
		src:     src,
		seen:    make(map[string]struct{}),
		started: s.now().UTC(),
		sum: Summary{
			DryRun:            opts.DryRun,
			MovementsPerSheet: make(map[string]int),
			Warnings:          []string{},
			Errors:            []string{},
		},
	}
	if err := r.execute(ctx); err != nil {
		r.sum.Errors = append(r.sum.Errors, err.Error())
		r.sum.Success = false
		r.sum.Message = "Import failed: " + err.Error()
		s.log.Error("import failed", "source", src.Name(), "dry_run", opts.DryRun, "err", err)
		return r.sum, err
	}
	r.sum.Success = true
	r.sum.Message = r.message()
	s.log.Info("import finished", "source", src.Name(), "dry_run", opts.DryRun,
		"imported", r.sum.MovementsImported, "skipped", r.sum.MovementsSkipped,
		"rejected", r.sum.MovementsRejected, "mismatches", r.sum.BalanceMismatches,
		"final_balance", r.sum.FinalBalance.String())
	return r.sum, nil
}

func (r *run) message() string {
	if r.opts.DryRun {
		return fmt.Sprintf("Dry run: %d movements would be imported, %d already exist, %d fall in closed periods",
			r.sum.MovementsImported, r.sum.MovementsSkipped, r.sum.MovementsRejected)
	}
	return fmt.Sprintf("Import complete: %d movements created, %d already existed, %d rejected in closed periods",
		r.sum.MovementsImported, r.sum.MovementsSkipped, r.sum.MovementsRejected)
}

func (r *run) warn(format string, args ...any) {
	r.sum.Warnings = append(r.sum.Warnings, fmt.Sprintf(format, args...))
}

func (r *run) execute(ctx context.Context) error {
	wb, err := r.load(ctx)
	if err != nil {
		return err
	}

	r.account, err = r.repo.AccountByCode(ctx, r.opts.AccountCode)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Wrap(errs.KindNotFound, err, "treasury account %s", r.opts.AccountCode)
	}
	if err != nil {
		return err
	}

	income, err := r.repo.ListIncomeSources(ctx)
	if err != nil {
		return err
	}
	expense, err := r.repo.ListExpenseCategories(ctx)
	if err != nil {
		return err
	}
	if r.resolver, err = r.rules.Bind(catalog.NewSnapshot(income, expense)); err != nil {
		return err
	}

	sheets := workbook.DetectLedgerSheets(wb)
	balance := r.account.OpeningBalance
	r.sum.FinalBalance = balance
	if len(sheets) == 0 {
		r.warn("no ledger sheets found: expected names like \"CORTE MAYO - 24\"")
		return nil
	}
	for _, ls := range sheets {
		if balance, err = r.sheet(ctx, ls, balance); err != nil {
			return err
		}
	}
	r.sum.FinalBalance = balance
	return nil
}

func (r *run) load(ctx context.Context) (*workbook.Workbook, error) {
	rc, err := r.src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return workbook.Load(rc)
}

// sheet processes one ledger sheet starting from balance and returns the
// balance after its rows.
func (r *run) sheet(ctx context.Context, ls workbook.LedgerSheet, balance decimal.Decimal) (decimal.Decimal, error) {
	name := ls.Sheet.Name
	ex, err := workbook.ExtractRows(ls.Sheet)
	if errors.Is(err, workbook.ErrNoHeader) {
		r.warn("sheet %s: %v; sheet skipped", name, err)
		return balance, nil
	}
	if err != nil {
		return balance, err
	}

	ss := SheetSummary{
		Name:            name,
		Period:          ls.Period.String(),
		Rows:            len(ex.Rows),
		OpeningBalance:  balance,
		DeclaredOpening: ex.DeclaredOpening,
	}
	if ex.DeclaredOpening != nil && !r.policy.Within(*ex.DeclaredOpening, balance) {
		r.mismatch(r.policy.MismatchMessage(fmt.Sprintf("sheet %s: opening balance carried from previous month", name), *ex.DeclaredOpening, balance))
	}

	planned := make([]ledger.Movement, 0, len(ex.Rows))
	for _, row := range ex.Rows {
		m := r.movement(ls, row)
		if balance, err = balance.Add(m.Signed()); err != nil {
			return balance, fmt.Errorf("sheet %s row %d: %w", name, row.Number, err)
		}
		if row.DeclaredBalance != nil && !r.policy.Within(*row.DeclaredBalance, balance) {
			observed := balance
			m.Import.BalanceMismatch = true
			m.Import.ObservedBalance = &observed
			r.mismatch(r.policy.MismatchMessage(fmt.Sprintf("sheet %s row %d: declared balance", name, row.Number), *row.DeclaredBalance, balance))
		}
		planned = append(planned, m)
	}
	r.sum.TotalRowsProcessed += len(ex.Rows)

	imported, err := r.persist(ctx, name, planned)
	if err != nil {
		return balance, err
	}
	ss.Movements = imported
	ss.ClosingBalance = balance
	r.sum.Sheets = append(r.sum.Sheets, ss)
	r.sum.MovementsPerSheet[name] = imported
	r.log.Info("import sheet", "sheet", name, "period", ss.Period, "rows", ss.Rows,
		"movements", imported, "opening", ss.OpeningBalance.String(), "closing", balance.String())
	return balance, nil
}

func (r *run) mismatch(msg string) {
	r.sum.BalanceMismatches++
	metrics.ImportBalanceMismatches.Inc()
	r.sum.Warnings = append(r.sum.Warnings, msg)
	r.log.Warn("balance mismatch", "detail", msg)
}

func (r *run) movement(ls workbook.LedgerSheet, row workbook.Row) ledger.Movement {
	fp := fingerprint.Compute(fingerprint.Input{
		Date:            row.Date,
		Description:     row.Description,
		Direction:       row.Direction,
		Amount:          row.Amount,
		DeclaredBalance: row.DeclaredBalance,
		Sheet:           ls.Sheet.Name,
	})
	incomeID, expenseID := r.resolver.Resolve(row.Description, row.Direction)
	now := r.started
	return ledger.Movement{
		ID:                uuid.New(),
		Number:            fmt.Sprintf("IMP-%04d%02d-%04d-%s", ls.Period.Year, ls.Period.Month, row.Number, fp[:8]),
		Date:              row.Date,
		Direction:         row.Direction,
		AccountID:         r.account.ID,
		IncomeSourceID:    incomeID,
		ExpenseCategoryID: expenseID,
		Amount:            row.Amount,
		Description:       row.Description,
		Medium:            ledger.MediumTransfer,
		Status:            ledger.StatusApproved,
		CreatedAt:         now,
		CreatedBy:         r.opts.Actor,
		ApprovedAt:        &now,
		ApprovedBy:        r.opts.Actor,
		Import: &ledger.ImportProvenance{
			Fingerprint:     fp,
			SourceFile:      r.src.Name(),
			Sheet:           ls.Sheet.Name,
			Row:             row.Number,
			ImportedAt:      now,
			DeclaredBalance: row.DeclaredBalance,
		},
	}
}

// persist writes the sheet's movements, skipping known fingerprints and
// rows dated in closed months. A dry run performs the same reads and no writes.
func (r *run) persist(ctx context.Context, sheet string, planned []ledger.Movement) (int, error) {
	var imported, skipped, rejected int
	body := func(ctx context.Context) error {
		closed := make(map[ledger.Period]bool)
		for _, m := range planned {
			fp := m.Import.Fingerprint
			if _, dup := r.seen[fp]; dup {
				skipped++
				continue
			}
			exists, err := r.repo.MovementExistsByFingerprint(ctx, fp)
			if err != nil {
				return err
			}
			if exists {
				r.seen[fp] = struct{}{}
				skipped++
				continue
			}
			p := m.Period()
			isClosed, ok := closed[p]
			if !ok {
				if isClosed, err = r.periods.IsMonthClosed(ctx, p.Year, p.Month); err != nil {
					return err
				}
				closed[p] = isClosed
			}
			if isClosed {
				rejected++
				continue
			}
			if !r.opts.DryRun {
				if _, err := r.writer.CreateMovement(ctx, m); err != nil {
					return fmt.Errorf("sheet %s row %d: %w", sheet, m.Import.Row, err)
				}
			}
			r.seen[fp] = struct{}{}
			imported++
		}
		return nil
	}

	var err error
	if r.opts.DryRun || len(planned) == 0 {
		err = body(ctx)
	} else {
		dates := make([]time.Time, len(planned))
		for i, m := range planned {
			dates[i] = m.Date
		}
		err = r.locker.WithPeriodLock(ctx, ledger.UniquePeriods(dates...), body)
	}
	if err != nil {
		return 0, err
	}

	dry := metrics.DryRunLabel(r.opts.DryRun)
	metrics.ImportRows.WithLabelValues(metrics.RowImported, dry).Add(float64(imported))
	metrics.ImportRows.WithLabelValues(metrics.RowSkipped, dry).Add(float64(skipped))
	metrics.ImportRows.WithLabelValues(metrics.RowRejected, dry).Add(float64(rejected))
	r.sum.MovementsImported += imported
	r.sum.MovementsSkipped += skipped
	r.sum.MovementsRejected += rejected
	if rejected > 0 {
		r.warn("sheet %s: %d movements dated in closed periods were not imported", sheet, rejected)
	}
	return imported, nil
}
