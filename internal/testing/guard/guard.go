// Package guard switches the process into test mode when imported, so
// commands under test skip network side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PAGORA_TEST_MODE") == "" {
			_ = os.Setenv("PAGORA_TEST_MODE", "1")
		}
	})
}
