package scheduler

import (
	"context"
	"fmt"

	"classifieds_backend/platform/config"
	"classifieds_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ImageDeleter removes stored objects by key.
type ImageDeleter interface {
	DeleteBatch(ctx context.Context, keys []string) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	deleter ImageDeleter
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deleter ImageDeleter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(deleter, log)
	w.server = server
	return w, nil
}

func newWorker(deleter ImageDeleter, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:     mux,
		deleter: deleter,
		log:     log,
	}

	mux.HandleFunc(TaskImageCleanup, w.handleImageCleanup)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleImageCleanup deletes the keys of the payload. A malformed payload is
// not retried; storage failures are.
func (w *Worker) handleImageCleanup(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseImageCleanupPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if len(payload.Keys) == 0 {
		return nil
	}

	if err := w.deleter.DeleteBatch(ctx, payload.Keys); err != nil {
		w.log.Warn("image cleanup failed", "keys", len(payload.Keys), "error", err)
		return err
	}

	w.log.Info("images cleaned up", "keys", len(payload.Keys))
	return nil
}
