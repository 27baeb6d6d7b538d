package watchimport

// RemoteState names the phase of an asynchronous request.
type RemoteState string

const (
	RemoteNotAsked RemoteState = "notAsked"
	RemoteLoading  RemoteState = "loading"
	RemoteSuccess  RemoteState = "success"
	RemoteFailure  RemoteState = "failure"
)

// RemoteData tracks an asynchronous request together with its result.
// The value is only meaningful in the success state and the error message
// only in the failure state; accessors enforce this instead of callers
// probing fields directly.
type RemoteData[T any] struct {
	state RemoteState
	value T
	err   string
}

// NotAsked returns the initial remote-data state.
func NotAsked[T any]() RemoteData[T] {
	return RemoteData[T]{state: RemoteNotAsked}
}

// Loading marks a request as in flight.
func Loading[T any]() RemoteData[T] {
	return RemoteData[T]{state: RemoteLoading}
}

// Success wraps a completed result.
func Success[T any](value T) RemoteData[T] {
	return RemoteData[T]{state: RemoteSuccess, value: value}
}

// Failure wraps a failed request's message.
func Failure[T any](message string) RemoteData[T] {
	return RemoteData[T]{state: RemoteFailure, err: message}
}

// State returns the current phase.
func (r RemoteData[T]) State() RemoteState {
	if r.state == "" {
		return RemoteNotAsked
	}
	return r.state
}

// Value returns the result and whether the request succeeded.
func (r RemoteData[T]) Value() (T, bool) {
	var zero T
	if r.state != RemoteSuccess {
		return zero, false
	}
	return r.value, true
}

// Err returns the failure message and whether the request failed.
func (r RemoteData[T]) Err() (string, bool) {
	if r.state != RemoteFailure {
		return "", false
	}
	return r.err, true
}
