package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskImageCleanup = "ads.images.cleanup"

// ImageCleanupPayload lists object keys no ad references any more.
type ImageCleanupPayload struct {
	Keys []string `json:"keys"`
}

func NewImageCleanupTask(payload ImageCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImageCleanup, data), nil
}

func ParseImageCleanupPayload(task *asynq.Task) (ImageCleanupPayload, error) {
	var payload ImageCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ImageCleanupPayload{}, err
	}
	return payload, nil
}
