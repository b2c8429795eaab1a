package gateways

import (
	"fmt"
	"os"
)

// InstallChecker asserts install integrity after a package install job
type InstallChecker struct{}

// NewInstallChecker creates a new install checker
func NewInstallChecker() *InstallChecker {
	return &InstallChecker{}
}

// VerifyBinaries asserts that each path exists and is executable.
//
// Used by the install-verification stage; any miss is a hard abort.
func (c *InstallChecker) VerifyBinaries(paths []string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("expected binary missing: %s: %w", p, err)
		}
		if info.IsDir() {
			return fmt.Errorf("expected binary is a directory: %s", p)
		}
		if info.Mode().Perm()&0o111 == 0 {
			return fmt.Errorf("expected binary is not executable: %s", p)
		}
	}
	return nil
}
