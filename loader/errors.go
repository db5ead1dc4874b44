package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Source when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRetailerNotFound is returned when a retailer has no pos_data.json.
	ErrRetailerNotFound = errors.New("retailer not found")

	// ErrInvalidRetailer is returned for retailer keys that could escape the
	// data root ("../x", "a/b").
	ErrInvalidRetailer = errors.New("invalid retailer key")
)

// DocumentError reports which document failed to load or decode.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true for missing documents and unknown retailers.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRetailerNotFound)
}
