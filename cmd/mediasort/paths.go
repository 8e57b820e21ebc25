package main

import (
	"errors"
	"os"
	"path/filepath"

	"mediasort/internal/config"
)

// canonicalArg resolves a user path the way migrate keys its checkpoints:
// absolute and free of symlinks when it exists.
func canonicalArg(arg string) (string, error) {
	expanded, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return expanded, nil
		}
		return "", err
	}
	return resolved, nil
}
