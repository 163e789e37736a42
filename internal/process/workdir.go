package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// prepareDir makes sure dir exists and is a directory, creating it with
// its parents when missing. Nothing guards against another process racing
// on the same path; the loser gets an error.
func prepareDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating working directory: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("checking working directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}
	return nil
}

func dirStatus(err error) Status {
	if errors.Is(err, ErrNotADirectory) {
		return StatusWorkDirNotADirectory
	}
	return StatusWorkDirCreateFailed
}
