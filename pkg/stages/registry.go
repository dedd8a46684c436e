package stages

import "github.com/bsi-grundschutz/auditpilot/pkg/models"

// Order is the fixed stage execution order: the Audit Controller walks it
// in sequence, skipping or failing a stage according to its own
// resumability and prerequisite rules rather than reordering the DAG.
var Order = []models.StageName{
	models.StagePreviousReportScan,
	models.StageGroundTruthMap,
	models.StageGsCheckExtraction,
	models.StageChapter4Cert,
	models.StageChapter4Surv1,
	models.StageChapter4Surv2,
	models.StageChapter1,
	models.StageChapter3,
	models.StageChapter5,
	models.StageChapter7,
}

// Registry builds every StageRunner from its constructor and indexes the
// runners by Name().
func Registry() map[models.StageName]StageRunner {
	runners := []StageRunner{
		NewPreviousReportScanRunner(),
		NewGroundTruthMapRunner(),
		NewGsCheckExtractionRunner(),
		NewChapter4CertRunner(),
		NewChapter4Surv1Runner(),
		NewChapter4Surv2Runner(),
		NewChapter1Runner(),
		NewChapter3Runner(),
		NewChapter5Runner(),
		NewChapter7Runner(),
	}
	reg := make(map[models.StageName]StageRunner, len(runners))
	for _, r := range runners {
		reg[r.Name()] = r
	}
	return reg
}
