// Package app wires the manifest loader, compiler, planner, and executor
// into the operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/groundworkd/groundwork/internal/adapters/command"
	"github.com/groundworkd/groundwork/internal/adapters/filesystem"
	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/execution"
	"github.com/groundworkd/groundwork/internal/domain/ledger"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
	"github.com/groundworkd/groundwork/internal/provider/database"
	"github.com/groundworkd/groundwork/internal/provider/files"
	"github.com/groundworkd/groundwork/internal/provider/firewall"
	"github.com/groundworkd/groundwork/internal/provider/netif"
	"github.com/groundworkd/groundwork/internal/provider/service"
	"github.com/groundworkd/groundwork/internal/provider/sysctl"
)

// DefaultLedgerPath is where apply records convergence unless overridden.
const DefaultLedgerPath = "/var/lib/groundwork/ledger.yaml"

// Groundwork is the main application orchestrator.
type Groundwork struct {
	loader   *manifest.Loader
	compiler *compiler.Compiler
	planner  *execution.Planner
	store    *ledger.Store
	runs     *execution.RunStore
	log      ports.Logger
	out      io.Writer
	styles   styles
}

// New creates a Groundwork application against the live host, recording into
// the ledger at ledgerPath.
func New(out io.Writer, ledgerPath string) *Groundwork {
	runner := command.NewRealRunner()
	fs := filesystem.NewRealFileSystem()
	return NewWithPorts(out, ledgerPath, runner, fs)
}

// NewWithPorts creates a Groundwork application with explicit port
// implementations. Tests inject mocks here.
func NewWithPorts(out io.Writer, ledgerPath string, runner ports.CommandRunner, fs ports.FileSystem) *Groundwork {
	if ledgerPath == "" {
		ledgerPath = DefaultLedgerPath
	}

	comp := compiler.NewCompiler()
	comp.RegisterProvider(netif.NewProvider(runner, fs))
	comp.RegisterProvider(sysctl.NewProvider(runner, fs))
	comp.RegisterProvider(firewall.NewProvider(runner, fs))
	comp.RegisterProvider(service.NewProvider(runner))
	comp.RegisterProvider(database.NewProvider(runner))
	comp.RegisterProvider(files.NewProvider(fs))

	return &Groundwork{
		loader:   manifest.NewLoader(fs),
		compiler: comp,
		planner:  execution.NewPlanner(),
		store:    ledger.NewStore(ledgerPath),
		runs:     execution.NewRunStore(filepath.Join(filepath.Dir(ledgerPath), "last_run.yaml")),
		out:      out,
		styles:   defaultStyles(),
	}
}

// WithLogger sets the logger used by apply runs.
func (g *Groundwork) WithLogger(log ports.Logger) *Groundwork {
	g.log = log
	return g
}

// Plan loads the manifest, compiles it, and builds the ordered plan against
// the current ledger and live host. Planning never mutates anything.
func (g *Groundwork) Plan(ctx context.Context, manifestPath string) (*execution.Plan, error) {
	resources, err := g.loader.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	graph, err := g.compiler.Compile(resources)
	if err != nil {
		return nil, err
	}

	led, err := g.store.Load()
	if err != nil {
		return nil, err
	}

	return g.planner.Plan(ctx, graph, led)
}

// Apply plans and executes the manifest. Real runs take the single-writer
// lock and persist a run record before the first step; dry runs do neither.
func (g *Groundwork) Apply(ctx context.Context, manifestPath string, dryRun bool) (*execution.RunRecord, error) {
	plan, err := g.Plan(ctx, manifestPath)
	if err != nil {
		return nil, err
	}

	executor := execution.NewExecutor(g.store).WithDryRun(dryRun)
	if g.log != nil {
		executor = executor.WithLogger(g.log)
	}

	if dryRun {
		return executor.Execute(ctx, plan)
	}

	lock := ledger.NewRunLock(g.store.Path())
	if err := lock.Acquire(plan.ID()); err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Release()
	}()

	// An in-progress record lands before the first step so `status` can
	// report a run that crashed mid-way.
	if err := g.runs.Save(&execution.RunRecord{
		PlanID:     plan.ID(),
		Status:     execution.RunInProgress,
		StartedAt:  time.Now().UTC(),
		StepsTotal: plan.Len(),
	}); err != nil {
		return nil, err
	}

	record, execErr := executor.Execute(ctx, plan)
	if saveErr := g.runs.Save(record); saveErr != nil && execErr == nil {
		execErr = saveErr
	}
	return record, execErr
}

// Status returns the persisted ledger and the last run record. A missing run
// record is reported as a nil record, not an error.
func (g *Groundwork) Status() (*ledger.Ledger, *execution.RunRecord, error) {
	led, err := g.store.Load()
	if err != nil {
		return nil, nil, err
	}

	record, err := g.runs.Load()
	if err != nil {
		if errors.Is(err, execution.ErrNoRunRecord) {
			return led, nil, nil
		}
		return nil, nil, err
	}
	return led, record, nil
}

// printf writes to the output writer, ignoring errors.
func (g *Groundwork) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(g.out, format, args...)
}
