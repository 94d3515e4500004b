// Package controller holds the per-page orchestration: loading data from the
// backend, handing it to the views and dispatching user actions.
package controller

// State is the load state of a page or dashboard region. Every load starts
// over from loading; nothing from a previous cycle is kept.
type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateRendered State = "rendered"
	StateError    State = "error"
)
