package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/config"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/jobrun"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/metrics"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/quarantine"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/schema"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/storage"
	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Runner drives one job run through every stage.
type Runner struct {
	Job    *jobrun.Job
	Config config.Job
	// Datasets defaults to schema.Datasets().
	Datasets []schema.Dataset
}

// Run executes READ, VALIDATE, REFERENTIAL_CHECK, ENRICH and MERGE in order
// and stops at the first failure, which is returned as a *StageError. The
// counts gathered so far are returned either way.
func (r *Runner) Run(ctx context.Context) (jobrun.Counts, error) {
	datasets := r.Datasets
	if len(datasets) == 0 {
		datasets = schema.Datasets()
	}
	counts := jobrun.Counts{}
	log := r.Job.Log
	frames := make(map[string]*records.Frame, len(datasets))

	// READ
	err := r.step(StageRead, func() error {
		for _, ds := range datasets {
			prefix := config.Prefix(r.Config.Layout.RawPrefix, ds.Name)
			f, err := Ingest(ctx, r.Job.Objects, r.Config.Bucket, prefix, ds)
			if err != nil {
				return stageErr(StageRead, ds.Name, err)
			}
			frames[ds.Name] = f
			counts.Get(ds.Name).Raw = int64(f.Len())
			metrics.RecordRow(r.Job.Name, "raw", int64(f.Len()))
			log.Debug("dataset read", zap.String("dataset", ds.Name), zap.String("prefix", prefix), zap.Int("rows", f.Len()))
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	log.Info("Raw data successfully read")

	// VALIDATE
	qw := quarantine.Writer{Store: r.Job.Objects, Bucket: r.Config.Bucket, Header: r.Config.Quarantine.Header}
	err = r.step(StageValidate, func() error {
		for _, ds := range datasets {
			valid, invalid := Validate(frames[ds.Name], ds)
			key, err := qw.Write(ctx, config.Prefix(r.Config.Layout.RejectedPrefix, ds.Name), invalid)
			if err != nil {
				return stageErr(StageValidate, ds.Name, err)
			}
			frames[ds.Name] = valid
			c := counts.Get(ds.Name)
			c.Valid, c.Invalid = int64(valid.Len()), int64(invalid.Len())
			metrics.RecordRow(r.Job.Name, "valid", c.Valid)
			metrics.RecordRow(r.Job.Name, "invalid", c.Invalid)
			log.Info("dataset validated",
				zap.String("dataset", ds.Name),
				zap.Int("valid", valid.Len()),
				zap.Int("invalid", invalid.Len()),
				zap.String("rejected", key))
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	log.Info("Validation and rejection of invalid records completed")

	// REFERENTIAL_CHECK
	err = r.step(StageReferentialCheck, func() error {
		orders, products, items := frames[schema.Orders], frames[schema.Products], frames[schema.OrderItems]
		if orders == nil || products == nil || items == nil {
			return nil
		}
		kept, dropped, err := CheckReferences(orders, products, items)
		if err != nil {
			return stageErr(StageReferentialCheck, schema.OrderItems, err)
		}
		frames[schema.OrderItems] = kept
		counts.Get(schema.OrderItems).RIDropped = int64(dropped)
		metrics.RecordRow(r.Job.Name, "ri_dropped", int64(dropped))
		if dropped > 0 {
			log.Warn("order items without a matching order or product dropped",
				zap.String("dataset", schema.OrderItems), zap.Int("dropped", dropped))
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	log.Info("Referential integrity checks passed")

	// ENRICH
	err = r.step(StageEnrich, func() error {
		for _, ds := range datasets {
			f, err := Enrich(frames[ds.Name], ds, r.Config.TimestampLayout)
			if err != nil {
				return stageErr(StageEnrich, ds.Name, err)
			}
			frames[ds.Name] = f
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	log.Info("Timestamp conversion and partition column added")

	// MERGE
	err = r.step(StageMerge, func() error {
		for _, ds := range datasets {
			target := storage.Target{
				Path:            config.Path(r.Config.Layout.ProcessedPrefix, ds.Name),
				KeyColumns:      ds.NaturalKey,
				PartitionColumn: ds.PartitionColumn,
			}
			res, err := storage.Upsert(ctx, r.Job.Tables, target, frames[ds.Name])
			if err != nil {
				return stageErr(StageMerge, ds.Name, err)
			}
			c := counts.Get(ds.Name)
			c.Created = res.Outcome == storage.Created
			c.Inserted, c.Updated = res.Inserted, res.Updated
			metrics.RecordRow(r.Job.Name, "inserted", res.Inserted)
			metrics.RecordRow(r.Job.Name, "updated", res.Updated)

			if c.Created {
				log.Info("table initialized at "+target.Path,
					zap.String("dataset", ds.Name), zap.Int("rows", res.Rows))
			} else {
				log.Info("MERGE completed for "+target.Path,
					zap.String("dataset", ds.Name),
					zap.Int64("inserted", res.Inserted),
					zap.Int64("updated", res.Updated))
			}
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	log.Info("job completed successfully")
	return counts, nil
}

// step times fn and records it as a metric step.
func (r *Runner) step(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(r.Job.Name, stage, err, time.Since(start))
	return err
}
