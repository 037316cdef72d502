package runtime

import (
	"chatsphere/domain"
	"sync"
)

// pairLocks serializes work per conversation. Only senders to the same
// peer wait on each other; every other conversation proceeds.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

// conversationKey is direction independent: A->B and B->A share one key.
func conversationKey(a, b domain.UserID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "\x00" + string(b)
}

// Lock blocks until the conversation is free and returns its unlock func.
func (p *pairLocks) Lock(a, b domain.UserID) func() {
	key := conversationKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
