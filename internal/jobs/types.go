// Package jobs defines the asynchronous document-extraction job model and the
// queue abstractions the API and worker share.
package jobs

import (
	"context"
	"time"
)

// JobType identifies the kind of work a job carries.
type JobType string

const (
	// JobTypeExtractDocument extracts transactions from an uploaded document.
	JobTypeExtractDocument JobType = "extract_document"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ExtractDocumentJob asks the worker to reassemble an uploaded document, run
// it through the extraction pipeline and record the results.
type ExtractDocumentJob struct {
	JobID        string     `json:"jobId"`
	DocumentName string     `json:"documentName"`
	MimeType     string     `json:"mimeType"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Error        string     `json:"error,omitempty"`
	RetryCount   int        `json:"retryCount"`
	MaxRetries   int        `json:"maxRetries"`

	// Extracted is the number of transactions the pipeline produced,
	// filled in on completion.
	Extracted int `json:"extracted"`
}

// Job is the minimal surface handlers and stores need.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ExtractDocumentJob) GetID() string        { return j.JobID }
func (j *ExtractDocumentJob) GetType() JobType     { return JobTypeExtractDocument }
func (j *ExtractDocumentJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs. Implementations may be in-memory or backed by an
// external queue such as Cloud Tasks.
type Publisher interface {
	PublishExtractDocument(ctx context.Context, job *ExtractDocumentJob) error
	Close() error
}

// Consumer drains the queue, invoking the handler for each job.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A non-nil error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can report progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractDocumentJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractDocumentJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractDocumentJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	DocumentName string
	Status       JobStatus
	Limit        int
	Offset       int
}
