package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskStaleScan = "leads.stale_scan"

// StaleScanPayload narrows a scan to one company. An empty CompanyID scans
// every company.
type StaleScanPayload struct {
	CompanyID string `json:"companyId,omitempty"`
}

func NewStaleScanTask(payload StaleScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleScan, data), nil
}

func ParseStaleScanPayload(task *asynq.Task) (StaleScanPayload, error) {
	var payload StaleScanPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StaleScanPayload{}, err
	}
	return payload, nil
}
