package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/junsooki/HDMIView/internal/config"
)

// ErrConfigExists is returned by WriteConfig when path exists and force is unset.
var ErrConfigExists = errors.New("config file already exists")

// WriteConfig saves cfg to path, refusing to replace an existing file
// unless force is set.
func WriteConfig(path string, cfg *config.Config, force bool) error {
	if !force {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	return cfg.Save(path)
}
