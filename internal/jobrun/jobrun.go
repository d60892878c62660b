// Package jobrun holds the per-run context of an ETL job and the bookkeeping
// that marks a run finished. Every run ends with exactly one Commit, on
// success and on failure, which writes a JSON manifest next to the data and
// flushes metrics.
package jobrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/metrics"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
)

// Deps are the long-lived resources a run works against.
type Deps struct {
	Log     *zap.Logger
	Objects objectstore.Store
	Tables  storage.TableStore
	// Now defaults to time.Now.
	Now func() time.Time
}

// Job is the context of one run.
type Job struct {
	Name  string
	RunID string
	Deps
	Started time.Time
}

// New starts a run of the named job with a fresh run id.
func New(name string, deps Deps) *Job {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	id := uuid.NewString()
	deps.Log = deps.Log.With(zap.String("job", name), zap.String("run_id", id))
	return &Job{Name: name, RunID: id, Deps: deps, Started: deps.Now().UTC()}
}

// Status of a finished run.
type Status string

const (
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

// DatasetCounts are the row counts of one dataset through the stages.
type DatasetCounts struct {
	Raw       int64 `json:"raw"`
	Valid     int64 `json:"valid"`
	Invalid   int64 `json:"invalid"`
	RIDropped int64 `json:"ri_dropped"`
	Inserted  int64 `json:"inserted"`
	Updated   int64 `json:"updated"`
	Created   bool  `json:"created"`
}

// Counts maps dataset name to its counts.
type Counts map[string]*DatasetCounts

// Get returns the counts for dataset, creating them when missing.
func (c Counts) Get(dataset string) *DatasetCounts {
	d, ok := c[dataset]
	if !ok {
		d = &DatasetCounts{}
		c[dataset] = d
	}
	return d
}

// Outcome is what Commit records.
type Outcome struct {
	Err     error
	Stage   string
	Dataset string
	Counts  Counts
}

// Manifest is the JSON document written by Commit.
type Manifest struct {
	Job      string    `json:"job"`
	RunID    string    `json:"run_id"`
	Status   Status    `json:"status"`
	Stage    string    `json:"failed_stage,omitempty"`
	Dataset  string    `json:"failed_dataset,omitempty"`
	Error    string    `json:"error,omitempty"`
	Started  time.Time `json:"started_at"`
	Finished time.Time `json:"finished_at"`
	Counts   Counts    `json:"datasets"`
}

// ErrAlreadyCommitted is returned by every Commit after the first.
var ErrAlreadyCommitted = errors.New("jobrun: run already committed")

// Tracker commits a run once.
type Tracker struct {
	job    *Job
	bucket string
	prefix string

	once     sync.Once
	manifest Manifest
}

// NewTracker returns a tracker writing manifests under
// {jobsPrefix}/{job}/runs/ in bucket.
func NewTracker(job *Job, bucket, jobsPrefix string) *Tracker {
	return &Tracker{job: job, bucket: bucket, prefix: strings.TrimRight(jobsPrefix, "/")}
}

// Start marks the beginning of the run. It writes nothing.
func (t *Tracker) Start() {
	t.job.Log.Info("job started")
}

// Key returns the manifest object key for this run.
func (t *Tracker) Key() string {
	return fmt.Sprintf("%s/%s/runs/%s.json", t.prefix, t.job.Name, t.job.RunID)
}

// Commit writes the run manifest and flushes metrics. Only the first call
// has any effect.
func (t *Tracker) Commit(ctx context.Context, o Outcome) (Manifest, error) {
	err := ErrAlreadyCommitted
	t.once.Do(func() {
		err = t.commit(ctx, o)
	})
	return t.manifest, err
}

func (t *Tracker) commit(ctx context.Context, o Outcome) error {
	m := Manifest{
		Job:      t.job.Name,
		RunID:    t.job.RunID,
		Status:   Succeeded,
		Started:  t.job.Started,
		Finished: t.job.Now().UTC(),
		Counts:   o.Counts,
	}
	if m.Counts == nil {
		m.Counts = Counts{}
	}
	if o.Err != nil {
		m.Status = Failed
		m.Stage = o.Stage
		m.Dataset = o.Dataset
		m.Error = o.Err.Error()
	}
	t.manifest = m

	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("jobrun: encode manifest: %w", err)
	}
	var firstErr error
	if err := t.job.Objects.Put(ctx, t.bucket, t.Key(), bytes.NewReader(body)); err != nil {
		firstErr = fmt.Errorf("jobrun: write manifest %s: %w", t.Key(), err)
	}
	if err := metrics.Flush(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("jobrun: flush metrics: %w", err)
	}

	t.job.Log.Info("job committed",
		zap.String("status", string(m.Status)),
		zap.String("manifest", t.Key()),
		zap.Duration("elapsed", m.Finished.Sub(m.Started)))
	return firstErr
}
