package scheduler

// cronLocker serializes this process's crontab read-modify-write cycles
// against the fired-alarm process's self-deletion path. The crontab
// protocol itself (read-all/write-all) has no locking, so two
// near-simultaneous writers would otherwise lose one update.
type cronLocker interface {
	// Lock acquires the lock and returns its release function.
	Lock() (func(), error)
}

// nopLocker is used in tests and on platforms without flock.
type nopLocker struct{}

func (nopLocker) Lock() (func(), error) {
	return func() {}, nil
}
