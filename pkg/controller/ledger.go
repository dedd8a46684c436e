package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

// AllFindingsKey is the object-store key the central findings log is
// persisted under.
const AllFindingsKey = "results/all_findings.json"

// findingsLedger is the controller's single mutator of the run's findings
// list — the only piece of global mutable state this pipeline has. It
// assigns sequential IDs per category, preserving IDs already carried over
// from a scanned previous report, and collapses duplicates by (category,
// normalized description).
type findingsLedger struct {
	mu      sync.Mutex
	seen    map[string]bool
	nextSeq map[models.FindingCategory]int
	all     []models.Finding
}

func newFindingsLedger() *findingsLedger {
	return &findingsLedger{seen: make(map[string]bool), nextSeq: make(map[models.FindingCategory]int)}
}

// loadExisting seeds the ledger from a previously persisted all_findings.json,
// so a resumed run continues the same ID sequence and duplicate set instead
// of re-deriving it from scratch.
func (l *findingsLedger) loadExisting(ctx context.Context, store objectstore.Store) error {
	exists, err := store.Exists(ctx, AllFindingsKey)
	if err != nil || !exists {
		return err
	}
	var existing []models.Finding
	if err := store.ReadJSON(ctx, AllFindingsKey, &existing); err != nil {
		return fmt.Errorf("controller: loading existing findings log: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range existing {
		l.recordLocked(f)
	}
	return nil
}

// ingest appends the given findings (as produced by one stage, in order),
// assigning fresh sequential IDs to any without one and dropping exact
// duplicates of findings already in the ledger. It returns the findings
// actually added (with final IDs), for the caller's own bookkeeping.
func (l *findingsLedger) ingest(findings []models.Finding) []models.Finding {
	l.mu.Lock()
	defer l.mu.Unlock()

	var added []models.Finding
	for _, f := range findings {
		key := f.DuplicateKey()
		if l.seen[key] {
			continue
		}
		if f.ID == "" {
			seq := l.nextSeq[f.Category] + 1
			f.ID = models.FormatFindingID(f.Category, seq)
		}
		l.recordLocked(f)
		added = append(added, f)
	}
	return added
}

// recordLocked adds f to the ledger and advances the per-category sequence
// counter past f's own sequence number, if f carries one. Caller holds l.mu.
func (l *findingsLedger) recordLocked(f models.Finding) {
	l.seen[f.DuplicateKey()] = true
	l.all = append(l.all, f)
	if _, seq, ok := models.ParseFindingID(f.ID); ok && seq > l.nextSeq[f.Category] {
		l.nextSeq[f.Category] = seq
	}
}

func (l *findingsLedger) snapshot() []models.Finding {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Finding, len(l.all))
	copy(out, l.all)
	return out
}

func (l *findingsLedger) persist(ctx context.Context, store objectstore.Store) error {
	return store.WriteJSON(ctx, AllFindingsKey, l.snapshot())
}
