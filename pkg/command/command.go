// Package command defines the remote command contract forms submit to and an
// HTTP implementation of it.
package command

import "context"

// Command invokes a remote procedure with validated input.
type Command[T, R any] func(ctx context.Context, input T) (R, error)

// Func wraps a plain function that does not return a result.
func Func[T any](fn func(ctx context.Context, input T) error) Command[T, struct{}] {
	return func(ctx context.Context, input T) (struct{}, error) {
		return struct{}{}, fn(ctx, input)
	}
}
