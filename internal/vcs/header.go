package vcs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// HeaderGuard is the include guard of the generated commit position header
const HeaderGuard = "TOOLS_GN_LAST_COMMIT_POSITION_H_"

// HeaderContent renders a header defining LAST_COMMIT_POSITION as version
func HeaderContent(guard, version string) string {
	if version == "" {
		version = UnknownPosition
	}
	return fmt.Sprintf(`// Generated by bootgen, do not edit.

#ifndef %[1]s
#define %[1]s

#define LAST_COMMIT_POSITION %[2]s

#endif  // %[1]s
`, guard, strconv.Quote(version))
}

// WriteHeader writes the header to path unless it already has the same
// content, so that dependent objects are not rebuilt. It reports whether the
// file was written.
func WriteHeader(path, guard, version string) (bool, error) {
	content := []byte(HeaderContent(guard, version))
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, err
	}
	return true, nil
}
