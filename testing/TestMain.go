package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("PAGORA_TEST_MODE", "1")
		if os.Getenv("PAGORA_DATA_SOURCE") == "" {
			_ = os.Setenv("PAGORA_DATA_SOURCE", "postgres")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
