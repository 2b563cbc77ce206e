package main

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it. Taken from the teacher's
// own lncli, which in turn borrows it from btcd.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		var homeDir string
		if u, err := user.Current(); err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
