package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSearchReindex is the task type for refreshing a package's
	// search index entry.
	TaskTypeSearchReindex = "search:reindex"
)

// SearchReindexPayload identifies the package to reindex.
type SearchReindexPayload struct {
	PackageID string `json:"package_id"`
}

// NewSearchReindexTask constructs an Asynq task.
func NewSearchReindexTask(payload SearchReindexPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSearchReindex, data), nil
}

// HandleSearchReindexTask adapts the indexing function into an Asynq handler.
func HandleSearchReindexTask(index func(ctx context.Context, packageID string) error) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SearchReindexPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.PackageID == "" {
			return asynq.SkipRetry
		}
		return index(ctx, payload.PackageID)
	}
}
