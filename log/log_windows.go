//go:build windows

package log

import (
	"os"
	"path/filepath"
)

// On Windows the user cache dir is %LocalAppData%, which is where
// per-user diagnostics belong.
func getDefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName, "logs"), nil
}
