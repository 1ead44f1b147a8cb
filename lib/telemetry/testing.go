package telemetry

import (
	"sync"
	"testing"
)

var initTestLogging sync.Once

// SetupForTesting configures logging for tests, debug output is only
// enabled under `go test -v`.
func SetupForTesting(t testing.TB) {
	initTestLogging.Do(func() {
		InitSlog(testing.Verbose())
	})
}
