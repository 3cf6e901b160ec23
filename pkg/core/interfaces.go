package core

import "context"

// Tool is a concrete capability an agent can call during a task.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) (string, error)
}
