package service

import "sync"

const sessionToken = "session"

// recordLocks hands out one operation token per logical record. A second
// operation on a record whose token is held fails with ErrBusy rather than
// waiting.
type recordLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newRecordLocks() *recordLocks {
	return &recordLocks{held: map[string]struct{}{}}
}

func (l *recordLocks) acquire(token string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[token]; busy {
		return nil, ErrBusy
	}
	l.held[token] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, token)
			l.mu.Unlock()
		})
	}, nil
}
