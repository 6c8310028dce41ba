package buildwatch

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Status is a build state label as reported by the build system.
//
// The four known labels are [StatusPending], [StatusRunning],
// [StatusSucceeded] and [StatusFailed]. Other labels the server reports
// (for example "canceled") are accepted as long as they form a single class
// token; see [Status.Validate].
type Status string

const (
	// StatusPending indicates the build is waiting in the queue.
	StatusPending Status = "pending"

	// StatusRunning indicates the build is in progress.
	StatusRunning Status = "running"

	// StatusSucceeded indicates the build completed successfully.
	StatusSucceeded Status = "succeeded"

	// StatusFailed indicates the build failed.
	StatusFailed Status = "failed"
)

const (
	// statusClassPrefix prefixes every status-derived class tag.
	statusClassPrefix = "build-"

	// BindingClass marks an element as bound to build-status display.
	// It shares the status prefix but is never treated as a status tag.
	BindingClass = statusClassPrefix + "status"
)

// String returns the label. This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// Known reports whether s is one of the four built-in labels.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

// ClassName returns the class tag rendered for s, e.g. "build-running".
func (s Status) ClassName() string {
	return statusClassPrefix + string(s)
}

// Tooltip returns the hover text shown on an element carrying s.
// Unknown labels have no tooltip.
func (s Status) Tooltip() string {
	switch s {
	case StatusSucceeded:
		return "Build completed successfully"
	case StatusFailed:
		return "Build failed - click for details"
	case StatusRunning:
		return "Build in progress"
	case StatusPending:
		return "Build waiting in queue"
	default:
		return ""
	}
}

// Validate checks that s can be rendered as a single status class tag.
func (s Status) Validate() error {
	if s == "" {
		return errors.New("status label is empty")
	}
	if strings.IndexFunc(string(s), unicode.IsSpace) >= 0 {
		return fmt.Errorf("status label %q contains whitespace", string(s))
	}
	if s.ClassName() == BindingClass {
		return fmt.Errorf("status label %q collides with the binding class", string(s))
	}
	return nil
}

// statusFromClass returns the known label encoded in a class tag. Other
// build-* classes, such as "build-row-hover", are not status tags.
func statusFromClass(class string) (Status, bool) {
	if !strings.HasPrefix(class, statusClassPrefix) {
		return "", false
	}
	label := Status(strings.TrimPrefix(class, statusClassPrefix))
	if !label.Known() {
		return "", false
	}
	return label, true
}

// StatusRecord is the body of a build status response:
//
//	{"status": "running"}
type StatusRecord struct {
	Status Status `json:"status"`
}

// BuildID identifies a build job. It is treated as an opaque string.
type BuildID string

// String returns the id. This implements the fmt.Stringer interface.
func (b BuildID) String() string {
	return string(b)
}
