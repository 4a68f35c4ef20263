package util

type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	return e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// BufferpoolExhaustedError reports that every frame was pinned and no page
// could be evicted. Callers treat it as a request-level failure.
type BufferpoolExhaustedError struct {
	*StorageError
}

func NewBufferpoolExhaustedError() *BufferpoolExhaustedError {
	return &BufferpoolExhaustedError{
		&StorageError{Message: "all frames are pinned, no page could be evicted"},
	}
}
