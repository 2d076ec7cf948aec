// Package workers runs the service's background maintenance tasks: the
// periodic sweep of expired onboarding sessions and stale login-attempt
// records. It defines the Worker interface and a Workers aggregate that
// starts them in a unified way.
package workers

// Worker is the interface implemented by any background worker. Run starts
// the worker's execution; implementations are expected to block for the
// duration of their work or spawn goroutines internally.
type Worker interface {
	Run()
}
