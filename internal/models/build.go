package models

import "time"

// BuildReport describes one index build pass.
type BuildReport struct {
	ID         string        `json:"id"`
	Root       string        `json:"root"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Files      int           `json:"files"`
	Indexed    int           `json:"indexed"`
	Chunks     int           `json:"chunks"`
	Failed     []FileFailure `json:"failed,omitempty"`
	// Err is set when the build as a whole failed and the previous index was kept.
	Err string `json:"error,omitempty"`
}

// FileFailure records a document that could not be indexed.
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Duration returns how long the build took.
func (r *BuildReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the build replaced the index.
func (r *BuildReport) Succeeded() bool {
	return r.Err == ""
}
