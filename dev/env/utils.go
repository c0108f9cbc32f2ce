package devenv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"pastquestions-backend/pkg/configutil"
)

const moduleName = "pastquestions-backend"

// statePrefix is the leading path segment that ResolvePath expands.
const statePrefix = "<dev_state>"

var moduleLine = regexp.MustCompile(`(?m)^module\s+(\S+)\s*$`)

// ErrNoLiveConfig is returned when a live test config is absent or left blank.
var ErrNoLiveConfig = errors.New("live test config not filled in")

func isWorkspaceRoot(dir string) bool {
	mod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	matches := moduleLine.FindSubmatch(mod)
	return len(matches) == 2 && string(matches[1]) == moduleName
}

// GetWorkspaceRoot finds the repository root by walking up from the working
// directory, which is what makes the live tests runnable from any package.
func GetWorkspaceRoot() (string, error) {
	dir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	for {
		if isWorkspaceRoot(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s go.mod above the working directory: %w", moduleName, os.ErrNotExist)
		}
		dir = parent
	}
}

// StateDir is dev/.state under the workspace root.
func StateDir() (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "dev", ".state"), nil
}

// ResolvePath expands a leading "<dev_state>" segment to the dev state
// directory, creating it if needed. Other paths are returned as is.
func ResolvePath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, statePrefix)
	if !ok {
		return path, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strings.TrimLeft(rest, `/\`)), nil
}

// GetStateConfig reads a json5 config (and its .local override) from dev/.state.
func GetStateConfig[T any](name string) (T, error) {
	dir, err := StateDir()
	if err != nil {
		var out T
		return out, err
	}
	return configutil.ReadConfig[T](filepath.Join(dir, name))
}

// LoadMySchoolTestConfig reads the live scraper config, it is only usable once
// a subject has been filled in.
func LoadMySchoolTestConfig() (MySchoolTestConfig, error) {
	config, err := GetStateConfig[MySchoolTestConfig](MySchoolConfigFile)
	if err != nil {
		return config, fmt.Errorf("%s: %w", MySchoolConfigFile, err)
	}
	if config.Subject == "" {
		return config, fmt.Errorf("%s has no subject: %w", MySchoolConfigFile, ErrNoLiveConfig)
	}
	if config.Limit == 0 {
		config.Limit = 3
	}
	return config, nil
}

// LoadAlocTestConfig reads the live ALOC config, it needs an access token.
func LoadAlocTestConfig() (AlocTestConfig, error) {
	config, err := GetStateConfig[AlocTestConfig](AlocConfigFile)
	if err != nil {
		return config, fmt.Errorf("%s: %w", AlocConfigFile, err)
	}
	if config.Token == "" {
		return config, fmt.Errorf("%s has no token: %w", AlocConfigFile, ErrNoLiveConfig)
	}
	if config.Subject == "" {
		config.Subject = "chemistry"
	}
	return config, nil
}
