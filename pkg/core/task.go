package core

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus describes the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task represents a first-class unit of work in the pipeline: a named spec
// instance scheduled for one agent, with its rendered prompt and output.
type Task struct {
	ID             string
	Name           string
	Description    string
	ExpectedOutput string
	AssignedTo     string
	OutputFile     string
	Status         TaskStatus
	Result         string
	Error          string
	CreatedAt      time.Time
	StartedAt      time.Time
	FinishedAt     time.Time
	Metadata       map[string]string
}

// NewTask creates a task with a generated ID.
func NewTask(name, description, expectedOutput, assignedTo string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		ExpectedOutput: expectedOutput,
		AssignedTo:     assignedTo,
		Status:         TaskStatusPending,
		CreatedAt:      now,
	}
}

// Start marks the task as running.
func (t *Task) Start() {
	t.Status = TaskStatusRunning
	t.StartedAt = time.Now().UTC()
}

// Complete marks the task as completed with the given result.
func (t *Task) Complete(result string) {
	t.Status = TaskStatusCompleted
	t.Result = result
	t.FinishedAt = time.Now().UTC()
}

// Fail marks the task as failed with the given error message.
func (t *Task) Fail(msg string) {
	t.Status = TaskStatusFailed
	t.Error = msg
	t.FinishedAt = time.Now().UTC()
}
