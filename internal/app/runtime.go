package app

import (
	"os"
	"strconv"
)

// TestModeEnv is set by package tests so binaries skip network startup.
const TestModeEnv = "LEDGER_TEST_MODE"

// InTestMode reports whether LEDGER_TEST_MODE holds a true value.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
