//go:build !tinygo

package core

import "sync"

// State is the saved interrupt state returned by DisableInterrupts
type State uintptr

// On a host the "interrupts" are goroutines, so a mutex stands in for
// masking them.
var critical sync.Mutex

// DisableInterrupts enters a critical section
func DisableInterrupts() State {
	critical.Lock()
	return 0
}

// RestoreInterrupts leaves the critical section entered by DisableInterrupts
func RestoreInterrupts(state State) {
	critical.Unlock()
}
