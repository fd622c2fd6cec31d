package util

import (
	"runtime/debug"

	"github.com/vestake/vestake/internal/logging"
)

// SafeGoWithName runs fn in a goroutine, logging and swallowing any panic
// with the goroutine's name and stack.
func SafeGoWithName(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("goroutine panic recovered",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
