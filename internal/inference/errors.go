package inference

import "fmt"

// DataAccessError reports a failed reference-data fetch. The in-flight
// inference is aborted and no partial result is returned.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// Kind is the stable error kind exposed to callers.
func (e *DataAccessError) Kind() string {
	return "data_access"
}
