package buildwatch

import "errors"

// Poll failures are reported wrapped around one of these sentinels; match
// them with [errors.Is]. None of them stop the polling loop.
var (
	// ErrNetworkFailure covers transport errors and non-2xx responses.
	ErrNetworkFailure = errors.New("network failure")

	// ErrMalformedResponse covers bodies that are not valid JSON, lack the
	// status field, or carry a label that cannot be rendered.
	ErrMalformedResponse = errors.New("malformed status response")

	// ErrMissingBuildID is returned by [Watcher.Poll] when the page carries
	// no build id. The polling loop treats it as a silent no-op.
	ErrMissingBuildID = errors.New("no build id on page")
)
