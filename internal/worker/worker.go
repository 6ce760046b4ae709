package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/internal/metrics"
	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/queue"
	"github.com/bhfe/cfp-workshops/pkg/storage"
)

// DequeueTimeout bounds each blocking wait for a job so shutdown is noticed.
const DequeueTimeout = 5 * time.Second

// Uploader stores an object in the templates bucket.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
}

// TemplateStore reads templates and records their mirror key.
type TemplateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	SetMirrorKey(ctx context.Context, id uuid.UUID, key string) error
}

// JobQueue is the mirror job source.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// TemplateMirrorProcessor copies uploaded template files to object storage.
type TemplateMirrorProcessor struct {
	templates TemplateStore
	uploader  Uploader
	queue     JobQueue
	logger    *zap.Logger
	backoff   time.Duration
}

// NewTemplateMirrorProcessor creates a template mirror processor.
func NewTemplateMirrorProcessor(templates TemplateStore, uploader Uploader, q JobQueue, logger *zap.Logger) *TemplateMirrorProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateMirrorProcessor{templates: templates, uploader: uploader, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one mirror job. A template that no longer exists, or that is
// already mirrored at the computed key, completes without an upload.
func (p *TemplateMirrorProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := job.DecodeTemplateMirror()
	if err != nil {
		return err
	}

	t, err := p.templates.GetByID(ctx, payload.TemplateID)
	if errors.Is(err, models.ErrNotFound) {
		p.logger.Info("template deleted before mirror", zap.String("template_id", payload.TemplateID.String()))
		metrics.MirrorJobs.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	key := storage.TemplateKey(t.ID.String(), t.OriginalFilename)
	if t.MirrorKey == key {
		metrics.MirrorJobs.WithLabelValues("skipped").Inc()
		return nil
	}

	f, err := os.Open(t.FilePath)
	if err != nil {
		return fmt.Errorf("open template file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat template file: %w", err)
	}

	if err := p.uploader.Upload(ctx, key, storage.ContentTypeForFilename(t.OriginalFilename), f, info.Size()); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.templates.SetMirrorKey(ctx, t.ID, key); err != nil {
		return fmt.Errorf("record mirror key: %w", err)
	}

	metrics.MirrorJobs.WithLabelValues("completed").Inc()
	p.logger.Info("template mirrored", zap.String("template_id", t.ID.String()), zap.String("s3_key", key))
	return nil
}

// RunOnce waits up to timeout for one job and processes it. A failed job is
// retried through the queue. It reports whether a job was handled.
func (p *TemplateMirrorProcessor) RunOnce(ctx context.Context, timeout time.Duration) (bool, error) {
	job, err := p.queue.Dequeue(ctx, timeout)
	if err != nil {
		return false, fmt.Errorf("dequeue: %w", err)
	}
	if job == nil {
		return false, nil
	}

	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	if err := p.Process(ctx, job); err != nil {
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		dead, reErr := p.queue.Retry(ctx, job)
		if reErr != nil {
			return true, fmt.Errorf("retry enqueue: %w", reErr)
		}
		if dead {
			metrics.MirrorJobs.WithLabelValues("dead_lettered").Inc()
		} else {
			metrics.MirrorJobs.WithLabelValues("retried").Inc()
		}
		return true, err
	}
	return true, nil
}

// Run processes jobs until ctx is done.
func (p *TemplateMirrorProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("template mirror worker stopping")
			return
		}
		if _, err := p.RunOnce(ctx, DequeueTimeout); err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("template mirror worker", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(p.backoff):
			}
		}
	}
}
