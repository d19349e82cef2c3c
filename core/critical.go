package core

// Critical runs fn with interrupts masked. Sections must not nest.
func Critical(fn func()) {
	state := DisableInterrupts()
	defer RestoreInterrupts(state)
	fn()
}
