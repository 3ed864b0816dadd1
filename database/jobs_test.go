package database

import (
	"testing"

	"github.com/epitome-ai/fusion/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJobsHandler(t *testing.T) *JobsDBHandler {
	db := initDB(t)

	jobs, err := NewJobsDBHandler(db, false)
	require.NoError(t, err)

	return jobs
}

func TestEnqueueAndClaimJob(t *testing.T) {
	jobs := initJobsHandler(t)

	job := &model.ExtractionJob{
		Tenant:  uuid.NewString(),
		Schema:  "meal",
		Payload: model.Metadata{"food": "pizza"},
	}

	err := jobs.EnqueueJob(job)

	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)

	t.Run("Claim marks job running and counts the attempt", func(t *testing.T) {
		claimed, err := jobs.ClaimJob()

		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, job.ID, claimed.ID)
		assert.Equal(t, model.JobStatusRunning, claimed.Status)
		assert.Equal(t, 1, claimed.Attempts)
		assert.NotNil(t, claimed.ClaimedAt)
	})
}

func TestClaimJobEmptyQueue(t *testing.T) {
	jobs := initJobsHandler(t)

	claimed, err := jobs.ClaimJob()

	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestCompleteJob(t *testing.T) {
	jobs := initJobsHandler(t)

	job := &model.ExtractionJob{Tenant: uuid.NewString(), Schema: "workout", Payload: model.Metadata{"type": "run"}}
	require.NoError(t, jobs.EnqueueJob(job))

	claimed, err := jobs.ClaimJob()
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, jobs.CompleteJob(claimed.ID))

	doneStatus := model.JobStatusDone
	count, err := jobs.CountJobs(&doneStatus)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFailJob(t *testing.T) {
	jobs := initJobsHandler(t)

	job := &model.ExtractionJob{Tenant: uuid.NewString(), Schema: "meal", Payload: model.Metadata{"food": "soup"}}
	require.NoError(t, jobs.EnqueueJob(job))

	t.Run("Failure before attempt budget returns job to pending", func(t *testing.T) {
		claimed, err := jobs.ClaimJob()
		require.NoError(t, err)
		require.NotNil(t, claimed)

		require.NoError(t, jobs.FailJob(claimed.ID, "extractor unavailable", 3))

		reclaimed, err := jobs.ClaimJob()
		require.NoError(t, err)
		require.NotNil(t, reclaimed)
		assert.Equal(t, claimed.ID, reclaimed.ID)
		assert.Equal(t, 2, reclaimed.Attempts)
		assert.Equal(t, "extractor unavailable", reclaimed.LastError)
	})

	t.Run("Failure at attempt budget leaves job failed", func(t *testing.T) {
		claimed, err := jobs.ClaimJob()
		require.NoError(t, err)
		require.NotNil(t, claimed)

		require.NoError(t, jobs.FailJob(claimed.ID, "extractor unavailable", 2))

		next, err := jobs.ClaimJob()
		require.NoError(t, err)
		assert.Nil(t, next)

		failedStatus := model.JobStatusFailed
		count, err := jobs.CountJobs(&failedStatus)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestCountJobs(t *testing.T) {
	jobs := initJobsHandler(t)

	for i := 0; i < 3; i++ {
		job := &model.ExtractionJob{Tenant: uuid.NewString(), Schema: "meal", Payload: model.Metadata{}}
		require.NoError(t, jobs.EnqueueJob(job))
	}

	total, err := jobs.CountJobs(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	pendingStatus := model.JobStatusPending
	pending, err := jobs.CountJobs(&pendingStatus)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)
}
