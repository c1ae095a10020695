package runtime

import "context"

// Status describes the observed state of a container.
type Status struct {
	Running  bool
	ExitCode int
}

// Runtime answers read-only questions about a named container. Implementations
// must never mutate the container; a verification run owns no side effects on
// its target.
type Runtime interface {
	// IsRunning reports whether the named container exists and is running.
	IsRunning(ctx context.Context, name string) (bool, error)

	// Status returns the container's running state and last exit code.
	Status(ctx context.Context, name string) (Status, error)

	// LogTail returns up to lines of the most recent log output.
	LogTail(ctx context.Context, name string, lines int) (string, error)

	// NetworkAddr returns the container's IP address on its first attached
	// network.
	NetworkAddr(ctx context.Context, name string) (string, error)
}
