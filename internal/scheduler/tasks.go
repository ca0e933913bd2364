package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskRecordView = "views.record"

const TaskRecordSearch = "searchhistory.record"

type RecordViewPayload struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	ViewedAt  time.Time `json:"viewedAt"`
}

type RecordSearchPayload struct {
	UserID      string    `json:"userId"`
	Query       string    `json:"query"`
	ResultCount int       `json:"resultCount"`
	SearchedAt  time.Time `json:"searchedAt"`
}

func NewRecordViewTask(payload RecordViewPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordView, data), nil
}

func ParseRecordViewPayload(task *asynq.Task) (RecordViewPayload, error) {
	var payload RecordViewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecordViewPayload{}, err
	}
	return payload, nil
}

func NewRecordSearchTask(payload RecordSearchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordSearch, data), nil
}

func ParseRecordSearchPayload(task *asynq.Task) (RecordSearchPayload, error) {
	var payload RecordSearchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecordSearchPayload{}, err
	}
	return payload, nil
}
