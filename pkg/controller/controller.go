// Package controller walks the fixed audit stage DAG in topological order,
// enforces resumability and prerequisite rules, and owns the single mutable
// piece of run state this pipeline has — the central findings ledger.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
	"github.com/bsi-grundschutz/auditpilot/pkg/stages"
)

// RunSummaryKey is the object-store key the end-of-run summary is persisted
// under.
const RunSummaryKey = "results/run_summary.json"

// ErrStageFailed is returned by RunAll when at least one stage failed,
// mapping to the CLI's "run completed with failures" exit code.
var ErrStageFailed = errors.New("controller: one or more stages failed")

// Controller drives the DAG. It holds the dependencies every stage needs
// (via the embedded RunContext) plus the registry and execution order.
type Controller struct {
	store     objectstore.Store
	registry  map[models.StageName]stages.StageRunner
	order     []models.StageName
	rc        stages.RunContext
	manager   *Manager
	publisher *Publisher
}

// New builds a Controller from a fully populated RunContext (Force is
// ignored; each call sets it per-stage). It uses the default stage registry
// and order from pkg/stages.
func New(rc stages.RunContext) *Controller {
	manager := NewManager()
	return &Controller{
		store:     rc.Store,
		registry:  stages.Registry(),
		order:     stages.Order,
		rc:        rc,
		manager:   manager,
		publisher: NewPublisher(manager),
	}
}

// Subscribe registers a listener for this controller's stage-lifecycle
// events. The returned func must be called once the caller stops reading, to
// release the listener's channel.
func (c *Controller) Subscribe() (*Listener, func()) {
	return c.manager.Subscribe()
}

// RunAll executes every stage in topological order. Stages whose output
// already exists are skipped unless force is set; stages whose
// prerequisites are unmet are skipped with a message; stage failures do not
// abort the run.
func (c *Controller) RunAll(ctx context.Context, force bool) (*models.RunSummary, error) {
	ledger := newFindingsLedger()
	if err := ledger.loadExisting(ctx, c.store); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	statuses := make([]models.StageStatus, 0, len(c.order))
	anyFailed := false
	for _, name := range c.order {
		runner, ok := c.registry[name]
		if !ok {
			continue
		}
		status := c.runStage(ctx, runner, force, ledger)
		statuses = append(statuses, status)
		if status.Status == "failed" {
			anyFailed = true
		}
		slog.Info("stage finished", "stage", name, "status", status.Status, "message", status.Message)
	}

	if err := ledger.persist(ctx, c.store); err != nil {
		return nil, fmt.Errorf("controller: persisting findings log: %w", err)
	}

	summary := &models.RunSummary{Stages: statuses}
	if err := c.store.WriteJSON(ctx, RunSummaryKey, summary); err != nil {
		return summary, fmt.Errorf("controller: persisting run summary: %w", err)
	}
	if anyFailed {
		return summary, ErrStageFailed
	}
	return summary, nil
}

// RunStage executes exactly one stage, overwriting its output (force is
// always implicit here), after confirming every prerequisite's output
// already exists — it does not run prerequisites itself.
func (c *Controller) RunStage(ctx context.Context, name models.StageName) (*models.RunSummary, error) {
	runner, ok := c.registry[name]
	if !ok {
		return nil, fmt.Errorf("controller: unknown stage %q", name)
	}

	for _, prereqName := range runner.Prerequisites() {
		prereqRunner, ok := c.registry[prereqName]
		if !ok {
			continue
		}
		exists, err := c.store.Exists(ctx, prereqRunner.OutputKey())
		if err != nil {
			return nil, fmt.Errorf("controller: checking prerequisite %q: %w", prereqName, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: stage %q requires %q to have already run", stages.ErrMissingPrerequisite, name, prereqName)
		}
	}

	ledger := newFindingsLedger()
	if err := ledger.loadExisting(ctx, c.store); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	status := c.runStage(ctx, runner, true, ledger)
	if status.Status == "completed" {
		if err := ledger.persist(ctx, c.store); err != nil {
			return nil, fmt.Errorf("controller: persisting findings log: %w", err)
		}
	}

	summary := &models.RunSummary{Stages: []models.StageStatus{status}}
	if status.Status == "failed" {
		return summary, fmt.Errorf("controller: stage %q failed: %s", name, status.Message)
	}
	return summary, nil
}

// runStage applies the skip-if-exists check, invokes Generate, writes the
// result atomically, and ingests any embedded findings — the contract every
// StageRunner relies on the controller to enforce uniformly, rather than
// duplicating it in each stage.
func (c *Controller) runStage(ctx context.Context, runner stages.StageRunner, force bool, ledger *findingsLedger) models.StageStatus {
	name := runner.Name()
	c.publisher.PublishStarted(name)

	if !force {
		exists, err := c.store.Exists(ctx, runner.OutputKey())
		if err == nil && exists {
			status := models.StageStatus{Stage: name, Status: "skipped", Message: "output already exists"}
			c.publisher.PublishFinished(status)
			return status
		}
	}

	for _, prereqName := range runner.Prerequisites() {
		prereqRunner, ok := c.registry[prereqName]
		if !ok {
			continue
		}
		exists, err := c.store.Exists(ctx, prereqRunner.OutputKey())
		if err != nil || !exists {
			status := models.StageStatus{Stage: name, Status: "skipped", Message: fmt.Sprintf("missing prerequisite %q", prereqName)}
			c.publisher.PublishFinished(status)
			return status
		}
	}

	rc := c.rc
	rc.Force = force
	result, err := runner.Generate(ctx, &rc)
	if err != nil {
		var status models.StageStatus
		if errors.Is(err, stages.ErrOptionalStageSkipped) {
			status = models.StageStatus{Stage: name, Status: "skipped", Message: "no applicable input"}
		} else {
			status = models.StageStatus{Stage: name, Status: "failed", Message: err.Error()}
		}
		c.publisher.PublishFinished(status)
		return status
	}

	if err := c.store.WriteJSON(ctx, runner.OutputKey(), json.RawMessage(result.Content)); err != nil {
		status := models.StageStatus{Stage: name, Status: "failed", Message: fmt.Sprintf("writing output: %v", err)}
		c.publisher.PublishFinished(status)
		return status
	}

	if findings, err := models.ExtractEmbeddedFindings(result); err == nil && len(findings) > 0 {
		ledger.ingest(findings)
	}

	status := models.StageStatus{Stage: name, Status: "completed"}
	c.publisher.PublishFinished(status)
	return status
}
