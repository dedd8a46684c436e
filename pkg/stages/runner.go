// Package stages implements the ten Stage Runners of the audit pipeline.
// Each runner consumes a subset of prior artifacts, calls the LLM and/or
// deterministic logic, emits a chapter result, and a list of findings. The
// shared StageRunner interface and its skip/prerequisite/atomic-write
// contract are enforced once, by pkg/controller, rather than by each
// runner — splitting per-stage behavior from the lifecycle rules every
// stage shares.
package stages

import (
	"context"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/bsicatalog"
	"github.com/bsi-grundschutz/auditpilot/pkg/config"
	"github.com/bsi-grundschutz/auditpilot/pkg/docfinder"
	"github.com/bsi-grundschutz/auditpilot/pkg/gscheck"
	"github.com/bsi-grundschutz/auditpilot/pkg/groundtruth"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

// RunContext bundles every dependency a stage runner may need. Runners
// never construct their own clients; everything is injected by the
// controller at wiring time (cmd/auditpilot/main.go).
type RunContext struct {
	Store     objectstore.Store
	Client    llm.Client
	Finder    *docfinder.Finder
	Mapper    *groundtruth.Mapper
	Extractor *gscheck.Extractor
	Catalog   *bsicatalog.Catalog
	Config    *config.Config
	RunDate   time.Time

	// Force is the controller's per-invocation force decision for this
	// stage (true for --run-stage's target, or any stage under --force).
	// Generate is only called once the controller has already decided to
	// run the stage; Force is passed through so domain logic with its own
	// secondary idempotence guard (e.g. gscheck.Extractor's content-hash
	// check) can still skip redundant LLM work when the underlying inputs
	// haven't changed.
	Force bool
}

// StageRunner is the contract every stage implements.
type StageRunner interface {
	// Name identifies this stage in the DAG and findings log.
	Name() models.StageName

	// OutputKey is the object-store key this stage's result is written to;
	// the controller uses it for the skip-if-exists check (contract (a)).
	OutputKey() string

	// Prerequisites lists the stages whose output must already exist
	// (contract (b)); the controller resolves them to OutputKeys via the
	// registry before calling Generate.
	Prerequisites() []models.StageName

	// Generate produces this stage's ChapterResult. It is only invoked
	// after the controller has confirmed prerequisites are satisfied and
	// the stage isn't being skipped.
	Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error)
}
