package executor

import (
	"context"
)

// Task is a unit of background work. Run receives a context that carries the
// pool's per-task timeout.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Executor runs tasks off the caller's path.
//
// The contract is best effort: Submit never blocks, reports false when the task
// was not accepted, and a task's error or panic is never returned to whoever
// submitted it.
type Executor interface {
	Submit(task Task) bool
}
