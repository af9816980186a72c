package bandit

// Snapshot is a copy of every arm's posterior taken at the end of a round.
type Snapshot struct {
	Round      int
	Posteriors []BetaPosterior
}

// SnapshotObserver receives periodic snapshots from RunSimulation.
// Observers run synchronously on the simulation goroutine.
type SnapshotObserver interface {
	OnSnapshot(Snapshot)
}

// ObserverFunc adapts a function to SnapshotObserver.
type ObserverFunc func(Snapshot)

// OnSnapshot calls f(s).
func (f ObserverFunc) OnSnapshot(s Snapshot) {
	f(s)
}
