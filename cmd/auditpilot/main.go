// Command auditpilot drives the BSI Grundschutz audit pipeline: stage
// orchestration via pkg/controller, then report assembly via pkg/assembler.
// This binary wires the pkg/llm/fake test double by default so the pipeline
// is runnable end-to-end without a network dependency; a production
// deployment substitutes a real Provider at that same seam.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bsi-grundschutz/auditpilot/pkg/assembler"
	"github.com/bsi-grundschutz/auditpilot/pkg/bsicatalog"
	"github.com/bsi-grundschutz/auditpilot/pkg/config"
	"github.com/bsi-grundschutz/auditpilot/pkg/controller"
	"github.com/bsi-grundschutz/auditpilot/pkg/docfinder"
	"github.com/bsi-grundschutz/auditpilot/pkg/gscheck"
	"github.com/bsi-grundschutz/auditpilot/pkg/groundtruth"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/fake"
	"github.com/bsi-grundschutz/auditpilot/pkg/masking"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
	"github.com/bsi-grundschutz/auditpilot/pkg/stages"
)

// Exit codes.
const (
	exitSuccess             = 0
	exitConfigError         = 2
	exitMissingPrerequisite = 3
	exitStageFailed         = 4
)

// exitError carries the process exit code alongside the error cobra prints,
// so RunE can report a precise exit code without calling os.Exit deep inside
// command logic.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

var logRedactor = masking.NewDefaultRedactor()

// logSummary logs each stage's terminal status. Stage failure messages can
// embed text the LLM read out of an attached customer document (e.g. an
// error echoing a snippet of Umsetzungserlaeuterung); redact before it hits
// the log aggregator.
func logSummary(summary *models.RunSummary) {
	if summary == nil {
		return
	}
	for _, s := range summary.Stages {
		slog.Info("stage status", "stage", s.Stage, "status", s.Status, "message", logRedactor.Redact(s.Message))
	}
}

// startProgressLogger subscribes a listener to ctrl's stage-lifecycle events
// and logs each one as it arrives, so a long run-all prints progress instead
// of going silent until the summary at the end. The returned func
// unsubscribes and must be deferred by the caller.
func startProgressLogger(ctrl *controller.Controller) func() {
	listener, unsubscribe := ctrl.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range listener.Events() {
			if evt.Status != nil {
				slog.Info("stage progress", "stage", evt.Stage, "phase", evt.Phase, "message", logRedactor.Redact(evt.Status.Message))
			} else {
				slog.Info("stage progress", "stage", evt.Stage, "phase", evt.Phase)
			}
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}

// pipeline bundles everything a run needs; each subcommand's RunE builds its
// own via buildPipeline.
type pipeline struct {
	store objectstore.Store
	ctrl  *controller.Controller
}

func buildPipeline(ctx context.Context, configDir, dataDir string) (*pipeline, error) {
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return nil, fail(exitConfigError, err)
	}

	catalog, err := bsicatalog.Load(cfg.BSICatalogPath)
	if err != nil {
		return nil, fail(exitConfigError, err)
	}

	store := objectstore.NewAferoStore(afero.NewOsFs(), dataDir)
	provider := &fake.Provider{}
	llmCfg := llm.DefaultConfig()
	llmCfg.MaxConcurrentAIRequests = cfg.MaxConcurrentAIRequests
	client := llm.NewLimitedClient(provider, llmCfg)
	finder := docfinder.New(store, client, cfg.SourcePrefix)
	mapper := groundtruth.New(store, client, finder)
	extractor := gscheck.New(store, client, finder, cfg.MaxConcurrentAIRequests, cfg.ChunkOverlapPages)

	rc := stages.RunContext{
		Store:     store,
		Client:    client,
		Finder:    finder,
		Mapper:    mapper,
		Extractor: extractor,
		Catalog:   catalog,
		Config:    cfg,
		RunDate:   time.Now().UTC(),
	}
	return &pipeline{store: store, ctrl: controller.New(rc)}, nil
}

func newRootCommand() *cobra.Command {
	var configDir, dataDir string

	root := &cobra.Command{
		Use:          "auditpilot",
		Short:        "Runs the BSI Grundschutz audit pipeline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", getEnv("DATA_DIR", "./data"), "root directory for the object store")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		envPath := filepath.Join(configDir, ".env")
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("warning: could not load %s: %v; continuing with existing environment", envPath, err)
		} else {
			log.Printf("loaded environment from %s", envPath)
		}
	}

	var force bool
	runAllCmd := &cobra.Command{
		Use:   "run-all",
		Short: "Run every stage in topological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), configDir, dataDir)
			if err != nil {
				return err
			}
			stop := startProgressLogger(p.ctrl)
			defer stop()
			summary, err := p.ctrl.RunAll(cmd.Context(), force)
			logSummary(summary)
			if err != nil {
				return fail(exitStageFailed, err)
			}
			return nil
		},
	}
	runAllCmd.Flags().BoolVar(&force, "force", false, "re-run stages even if their output already exists")

	runStageCmd := &cobra.Command{
		Use:   "run-stage <name>",
		Short: "Run exactly one stage, after confirming its prerequisites' outputs exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), configDir, dataDir)
			if err != nil {
				return err
			}
			stop := startProgressLogger(p.ctrl)
			defer stop()
			summary, err := p.ctrl.RunStage(cmd.Context(), models.StageName(args[0]))
			logSummary(summary)
			if err != nil {
				if errors.Is(err, stages.ErrMissingPrerequisite) {
					return fail(exitMissingPrerequisite, err)
				}
				return fail(exitStageFailed, err)
			}
			return nil
		},
	}

	generateReportCmd := &cobra.Command{
		Use:   "generate-report",
		Short: "Run only the report assembler",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildPipeline(cmd.Context(), configDir, dataDir)
			if err != nil {
				return err
			}
			if err := assembler.New(p.store).Assemble(cmd.Context(), assembler.DefaultBlueprint()); err != nil {
				return fail(exitStageFailed, err)
			}
			slog.Info("final report written", "key", assembler.FinalReportKey)
			return nil
		},
	}

	root.AddCommand(runAllCmd, runStageCmd, generateReportCmd)
	return root
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	root := newRootCommand()
	root.SetContext(context.Background())

	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			log.Printf("%v", ee.err)
			os.Exit(ee.code)
		}
		log.Printf("%v", err)
		os.Exit(exitConfigError)
	}
}
