package store

import (
	"fmt"
	"path/filepath"

	"src.vapo.dev/pkg/testutil"
)

// MustTempStore returns a Store backed by a file in a temporary directory. The
// store is closed and the directory removed when the test finishes.
func MustTempStore(c testutil.Cleanuper) Store {
	st, err := NewStore(filepath.Join(testutil.TempDir(c), "changes.db"))
	if err != nil {
		panic(fmt.Sprintf("failed to create Store instance: %v", err))
	}
	c.Cleanup(func() { st.Close() })
	return st
}
