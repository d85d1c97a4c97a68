// Package appdir resolves the per-user data directory tree. Everything the
// application persists lives under a single root, ~/.gheval by default, so a
// catalogue can be backed up or moved by copying one directory.
package appdir

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

const defaultDirName = ".gheval"

// Dirs holds the resolved application directories. All paths are absolute.
type Dirs struct {
	Root        string
	Screenshots string
	Photos      string
	Exports     string
}

// DatabasePath returns the sqlite database file path under the root.
func (d Dirs) DatabasePath() string {
	return filepath.Join(d.Root, "gheval.db")
}

// Resolve determines the application directories. An empty root means the
// default location under the user's home directory. Directories are created
// if missing.
func Resolve(root string) (Dirs, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Dirs{}, eris.Wrap(err, "appdir: resolve home directory")
		}
		root = filepath.Join(home, defaultDirName)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Dirs{}, eris.Wrapf(err, "appdir: absolute path for %s", root)
	}

	d := Dirs{
		Root:        abs,
		Screenshots: filepath.Join(abs, "screenshots"),
		Photos:      filepath.Join(abs, "photos"),
		Exports:     filepath.Join(abs, "exports"),
	}
	for _, dir := range []string{d.Root, d.Screenshots, d.Photos, d.Exports} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Dirs{}, eris.Wrapf(err, "appdir: create %s", dir)
		}
	}
	return d, nil
}
