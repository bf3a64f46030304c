package sim

// Resetter removes every spawned object. The floor is not an object and is
// never touched.
type Resetter struct {
	e *Engine
}

// Reset detaches, removes and forgets every live object and returns how many
// there were. Resetting an empty engine returns 0.
func (r *Resetter) Reset() int {
	e := r.e
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.reg.Snapshot()
	for _, en := range entries {
		e.teardown(en.Pair)
	}
	e.reg.Clear()

	if len(entries) > 0 {
		e.logger.Info("reset", "removed", len(entries))
	}
	return len(entries)
}
