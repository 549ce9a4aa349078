// Package notify collects user-visible notifications for the current
// request and mirrors them to the log.
package notify

import (
	"go.uber.org/zap"
)

// Level of a notification.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notification is one message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
	Err     error
}

// Detail is the error text, or "".
func (n Notification) Detail() string {
	if n.Err == nil {
		return ""
	}
	return n.Err.Error()
}

// Recorder accumulates notifications for one request. It is not safe for
// concurrent use.
type Recorder struct {
	log   *zap.Logger
	items []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{log: logger}
}

// Error records an error notification.
func (r *Recorder) Error(title string, err error, message string) {
	r.items = append(r.items, Notification{Level: LevelError, Title: title, Message: message, Err: err})
	r.log.Error(message, zap.String("title", title), zap.Error(err))
}

// Success records a success notification.
func (r *Recorder) Success(title, message string) {
	r.items = append(r.items, Notification{Level: LevelSuccess, Title: title, Message: message})
}

// All returns the recorded notifications in order.
func (r *Recorder) All() []Notification { return r.items }

// HasErrors reports whether any error was recorded.
func (r *Recorder) HasErrors() bool {
	for _, n := range r.items {
		if n.Level == LevelError {
			return true
		}
	}
	return false
}
