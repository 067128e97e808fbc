// Package scheduler defines the background task types and the asynq client
// and worker that run them. Task uniqueness replaces an in-process run guard:
// overlapping enqueues of the same task are rejected by the broker, which
// also holds when multiple instances run concurrently.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskRoutingReconcile re-routes leads whose score write landed without a
// routing write.
const TaskRoutingReconcile = "leads.routing.reconcile"

// TaskWeeklyScorecards materializes last week's scorecards for all active
// users.
const TaskWeeklyScorecards = "kpi.scorecards.weekly"

// reconcileBatchSize bounds one reconciliation pass.
const reconcileBatchSize = 500

type RoutingReconcilePayload struct {
	BatchSize int `json:"batchSize"`
}

type WeeklyScorecardsPayload struct {
	AsOf time.Time `json:"asOf"`
}

func NewRoutingReconcileTask() (*asynq.Task, error) {
	data, err := json.Marshal(RoutingReconcilePayload{BatchSize: reconcileBatchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoutingReconcile, data), nil
}

func ParseRoutingReconcilePayload(task *asynq.Task) (RoutingReconcilePayload, error) {
	var payload RoutingReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RoutingReconcilePayload{}, err
	}
	return payload, nil
}

func NewWeeklyScorecardsTask(asOf time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(WeeklyScorecardsPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWeeklyScorecards, data), nil
}

func ParseWeeklyScorecardsPayload(task *asynq.Task) (WeeklyScorecardsPayload, error) {
	var payload WeeklyScorecardsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WeeklyScorecardsPayload{}, err
	}
	return payload, nil
}
