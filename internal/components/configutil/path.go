package configutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const devStatePrefix = "<dev_state>"

var modName = regexp.MustCompile(`(?m)^module *([\w\-_/.]+)$`)

func isWorkspaceRoot(currentdir string) bool {
	mod, err := os.ReadFile(filepath.Join(currentdir, "go.mod"))
	if err != nil {
		return false
	}
	matches := modName.FindSubmatch(mod)
	return len(matches) >= 2 && string(matches[1]) == "clantool"
}

// GetWorkspaceRoot walks up from the cwd until it finds the go.mod of this module.
func GetWorkspaceRoot() (string, error) {
	currentdir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	root, err := filepath.Abs("/")
	if err != nil {
		return "", err
	}

	for currentdir != root {
		if !isWorkspaceRoot(currentdir) {
			currentdir = filepath.Join(currentdir, "..")
			continue
		}
		return currentdir, nil
	}

	return "", os.ErrNotExist
}

// ResolvePath expands a leading `<dev_state>` into `<workspace root>/dev/.state`,
// any other path is returned unchanged.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, devStatePrefix) {
		return path, nil
	}

	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Join(root, "dev", ".state"), 0777)
	if err != nil {
		return "", err
	}

	subpath := strings.TrimPrefix(strings.TrimPrefix(path, devStatePrefix), string(os.PathSeparator))
	return filepath.Join(root, "dev", ".state", subpath), nil
}
