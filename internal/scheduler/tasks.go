package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskChannelSync = "channels.sync"

const TaskRecordingArchive = "recordings.archive"

const TaskSessionSweep = "voice.sessions.sweep"

type ChannelSyncPayload struct {
	Channels []string `json:"channels,omitempty"`
}

type RecordingArchivePayload struct {
	CallLogID    string `json:"callLogId"`
	RecordingURL string `json:"recordingUrl"`
}

func NewChannelSyncTask(payload ChannelSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChannelSync, data), nil
}

func ParseChannelSyncPayload(task *asynq.Task) (ChannelSyncPayload, error) {
	var payload ChannelSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ChannelSyncPayload{}, err
	}
	return payload, nil
}

func NewRecordingArchiveTask(payload RecordingArchivePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecordingArchive, data), nil
}

func ParseRecordingArchivePayload(task *asynq.Task) (RecordingArchivePayload, error) {
	var payload RecordingArchivePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecordingArchivePayload{}, err
	}
	return payload, nil
}

func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}
