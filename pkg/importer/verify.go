package importer

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
)

// VerifyFile checks that path holds a single JSON array, the input format
// mongoimport is run with.
func VerifyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := oj.Load(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotJSONArray, path, err)
	}
	if _, ok := data.([]any); !ok {
		return fmt.Errorf("%w: %s: top-level value is %T", ErrNotJSONArray, path, data)
	}
	return nil
}
