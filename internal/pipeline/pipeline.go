// Package pipeline implements the stages of the orders ETL job: read raw
// CSV extracts, validate and quarantine, enforce referential integrity,
// enrich timestamps and merge into the processed tables. Each stage covers
// every dataset before the next one starts.
package pipeline

import "fmt"

// Stage names, also used as metric step labels. StageSetup covers opening
// the table store, before any data is read.
const (
	StageSetup            = "setup"
	StageRead             = "read"
	StageValidate         = "validate"
	StageReferentialCheck = "referential_check"
	StageEnrich           = "enrich"
	StageMerge            = "merge"
)

// StageError reports which stage, and for which dataset, a run failed.
type StageError struct {
	Stage   string
	Dataset string
	Err     error
}

func (e *StageError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Dataset, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// SetupError marks a failure to reach the table store.
func SetupError(err error) error { return stageErr(StageSetup, "", err) }

func stageErr(stage, dataset string, err error) error {
	return &StageError{Stage: stage, Dataset: dataset, Err: err}
}
