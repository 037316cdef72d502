package runtime

import (
	"chatsphere/contract"
	"chatsphere/domain"
	"sync"

	"github.com/samber/lo"
)

// ConnectionDirectory maps connection identifiers to the sinks that can
// reach them. Entries are added when the transport accepts a connection
// and removed on teardown, so a lookup never returns a dead handle.
type ConnectionDirectory struct {
	mu    sync.RWMutex
	sinks map[domain.ConnectionID]contract.EventSink
}

func NewConnectionDirectory() *ConnectionDirectory {
	return &ConnectionDirectory{sinks: make(map[domain.ConnectionID]contract.EventSink)}
}

func (d *ConnectionDirectory) Attach(sink contract.EventSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[sink.ID()] = sink
}

func (d *ConnectionDirectory) Detach(connectionID domain.ConnectionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sinks, connectionID)
}

func (d *ConnectionDirectory) Get(connectionID domain.ConnectionID) (contract.EventSink, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sink, ok := d.sinks[connectionID]
	return sink, ok
}

func (d *ConnectionDirectory) All() []contract.EventSink {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Values(d.sinks)
}

func (d *ConnectionDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sinks)
}
