package app

import (
	"os"
	"sync"
)

// TestModeEnv set to "1" makes both binaries return right after start and silences
// request logging.
const TestModeEnv = "FESTA_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether runtime side effects should be skipped.
func InTestMode() bool {
	return testMode()
}
