package stages

import "errors"

// ErrMissingPrerequisite is returned by a runner's Generate when an input it
// depends on (typically another stage's output) does not exist. The
// controller reports this as the stage's terminal status rather than
// retrying it.
var ErrMissingPrerequisite = errors.New("stages: missing prerequisite")

// ErrNoSuchDocument is returned when a runner needs a document of a given
// category and the Document Finder has none classified under it.
var ErrNoSuchDocument = errors.New("stages: no document of required category")

// ErrOptionalStageSkipped is returned by a runner whose precondition is
// domain-optional rather than a DAG prerequisite (the previous-report
// scanner only runs if a Vorheriger-Auditbericht is classified). The
// controller records this as "skipped", not "failed", and does not treat
// dependents as blocked by it.
var ErrOptionalStageSkipped = errors.New("stages: stage has no applicable input, skipped")
