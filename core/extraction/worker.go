package extraction

import (
	"context"
	"log/slog"
	"time"

	"github.com/epitome-ai/fusion/database"
	"github.com/epitome-ai/fusion/model"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkerCount = 2
	defaultMaxAttempts = 3
	defaultPollDelay   = 500 * time.Millisecond
)

// Worker is a bounded pool draining the durable extraction queue. Records
// are extracted and written to the graph off the caller's latency path;
// failed jobs are retried until their attempt budget is exhausted.
type Worker struct {
	jobs        database.JobsDBHandlerFunctions
	extractor   *Extractor
	deduper     *Deduper
	ownerName   string
	workerCount int
	maxAttempts int
	pollDelay   time.Duration
	logger      *slog.Logger
}

// NewWorker creates a new extraction worker pool.
func NewWorker(jobs database.JobsDBHandlerFunctions, extractor *Extractor, deduper *Deduper, ownerName string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		jobs:        jobs,
		extractor:   extractor,
		deduper:     deduper,
		ownerName:   ownerName,
		workerCount: defaultWorkerCount,
		maxAttempts: defaultMaxAttempts,
		pollDelay:   defaultPollDelay,
		logger:      logger,
	}
}

// SetWorkerCount adjusts the pool size before Run is called.
func (w *Worker) SetWorkerCount(count int) {
	if count > 0 {
		w.workerCount = count
	}
}

// Run drains the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.workerCount; i++ {
		group.Go(func() error {
			return w.runWorker(groupCtx)
		})
	}
	return group.Wait()
}

// ProcessOne claims and processes a single job. It reports whether a job
// was available.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimJob()
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.processJob(ctx, job)
	return true, nil
}

func (w *Worker) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		processed, err := w.ProcessOne(ctx)
		if err != nil {
			w.logger.Warn("Claiming extraction job failed", slog.String("error", err.Error()))
		}
		if !processed {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollDelay):
			}
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *model.ExtractionJob) {
	record := recordFromJob(job)

	result := w.extractor.ExtractRecord(ctx, record, nil)
	err := w.deduper.Apply(job.Tenant, w.ownerName, result)
	if err != nil {
		w.logger.Warn("Extraction job failed",
			slog.Int64("jobId", job.ID),
			slog.String("error", err.Error()))
		failErr := w.jobs.FailJob(job.ID, err.Error(), w.maxAttempts)
		if failErr != nil {
			w.logger.Error("Recording job failure failed", slog.String("error", failErr.Error()))
		}
		return
	}

	err = w.jobs.CompleteJob(job.ID)
	if err != nil {
		w.logger.Error("Completing extraction job failed", slog.String("error", err.Error()))
		return
	}

	w.logger.Info("Processed extraction job",
		slog.Int64("jobId", job.ID),
		slog.String("schema", job.Schema),
		slog.Int("candidates", len(result.Candidates)))
}

func recordFromJob(job *model.ExtractionJob) *model.Record {
	record := &model.Record{
		Tenant:    job.Tenant,
		Schema:    job.Schema,
		Fields:    job.Payload,
		CreatedAt: job.CreatedAt,
	}
	if text, ok := job.Payload["text"].(string); ok {
		record.Text = text
	}
	return record
}
