package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/epitome-ai/fusion/helper"
	"github.com/epitome-ai/fusion/model"
	loadSql "github.com/epitome-ai/fusion/sql"
)

// JobsDBHandlerFunctions defines the interface for extraction job queue operations.
type JobsDBHandlerFunctions interface {
	EnqueueJob(job *model.ExtractionJob) error
	ClaimJob() (*model.ExtractionJob, error)
	CompleteJob(id int64) error
	FailJob(id int64, jobError string, maxAttempts int) error
	CountJobs(status *string) (int64, error)
}

// JobsDBHandler handles the durable extraction job queue. Claiming uses
// FOR UPDATE SKIP LOCKED so concurrent workers never double-process a job.
type JobsDBHandler struct {
	db *helper.Database
}

// NewJobsDBHandler creates a new extraction jobs database handler.
// It initializes the database connection and loads job-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewJobsDBHandler(db *helper.Database, force bool) (*JobsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	jobsDbHandler := &JobsDBHandler{
		db: db,
	}

	err := loadSql.LoadJobsSql(jobsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load jobs sql", err)
	}

	err = jobsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized JobsDBHandler")

	return jobsDbHandler, nil
}

// CreateTable creates the 'extraction_jobs' table in the database.
// If the table already exists, it does not create it again.
func (h *JobsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_extraction_jobs();`)
	if err != nil {
		log.Panicf("error initializing extraction_jobs table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table extraction_jobs")

	return nil
}

// EnqueueJob adds a pending extraction job to the queue
func (h *JobsDBHandler) EnqueueJob(job *model.ExtractionJob) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM enqueue_extraction_job($1, $2, $3)`,
		job.Tenant,
		job.Schema,
		job.Payload,
	)

	err := scanJob(row, job)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// ClaimJob atomically claims the oldest pending job, marking it running and
// incrementing its attempt count. Returns (nil, nil) when the queue is empty.
func (h *JobsDBHandler) ClaimJob() (*model.ExtractionJob, error) {
	job := &model.ExtractionJob{}
	row := h.db.Instance.QueryRow(`SELECT * FROM claim_extraction_job()`)

	err := scanJob(row, job)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, helper.NewError("scan", err)
	}

	return job, nil
}

// CompleteJob marks a job as done
func (h *JobsDBHandler) CompleteJob(id int64) error {
	_, err := h.db.Instance.Exec(
		`SELECT complete_extraction_job($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// FailJob records a job failure. The job returns to pending until the
// attempt budget is exhausted, then stays failed.
func (h *JobsDBHandler) FailJob(id int64, jobError string, maxAttempts int) error {
	_, err := h.db.Instance.Exec(
		`SELECT fail_extraction_job($1, $2, $3)`,
		id,
		jobError,
		maxAttempts,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// CountJobs counts jobs, optionally filtered by status
func (h *JobsDBHandler) CountJobs(status *string) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(
		`SELECT count_extraction_jobs($1)`,
		status,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

func scanJob(row rowScanner, job *model.ExtractionJob) error {
	return row.Scan(
		&job.ID,
		&job.Tenant,
		&job.Schema,
		&job.Payload,
		&job.Status,
		&job.Attempts,
		&job.LastError,
		&job.CreatedAt,
		&job.ClaimedAt,
	)
}
