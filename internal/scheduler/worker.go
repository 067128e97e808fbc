package scheduler

import (
	"context"
	"fmt"
	"time"

	"dealflow_backend/platform/config"
	"dealflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// RoutingReconciler re-routes scored-but-unrouted leads. Implemented by the
// leads module.
type RoutingReconciler interface {
	ReconcileRouting(ctx context.Context, batchSize int) (int, error)
}

// ScorecardMaterializer precomputes weekly scorecards. Implemented by the
// KPI module.
type ScorecardMaterializer interface {
	MaterializeWeeklyScorecards(ctx context.Context, asOf time.Time) (int, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	reconciler RoutingReconciler
	scorecards ScorecardMaterializer
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, reconciler RoutingReconciler, scorecards ScorecardMaterializer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		reconciler: reconciler,
		scorecards: scorecards,
		log:        log,
	}

	mux.HandleFunc(TaskRoutingReconcile, w.handleRoutingReconcile)
	mux.HandleFunc(TaskWeeklyScorecards, w.handleWeeklyScorecards)

	return w, nil
}

func (w *Worker) handleRoutingReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRoutingReconcilePayload(task)
	if err != nil {
		return err
	}

	batchSize := payload.BatchSize
	if batchSize < 1 {
		batchSize = reconcileBatchSize
	}

	routed, err := w.reconciler.ReconcileRouting(ctx, batchSize)
	if err != nil {
		return err
	}
	if routed > 0 {
		w.log.Info("routing reconciliation pass complete", "rerouted", routed)
	}
	return nil
}

func (w *Worker) handleWeeklyScorecards(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWeeklyScorecardsPayload(task)
	if err != nil {
		return err
	}

	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	materialized, err := w.scorecards.MaterializeWeeklyScorecards(ctx, asOf)
	if err != nil {
		return err
	}
	w.log.Info("weekly scorecards materialized", "count", materialized)
	return nil
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
