package backend

import (
	"sort"
	"sync"

	"github.com/strataio/strata"
)

var mmu sync.RWMutex
var m map[string]strata.Storage

// Register makes a Storage resolvable under name, replacing any previous
// registration for that name.
func Register(name string, s strata.Storage) {
	mmu.Lock()
	m[name] = s
	mmu.Unlock()
}

// Unregister removes the registration for name, if any.
func Unregister(name string) {
	mmu.Lock()
	delete(m, name)
	mmu.Unlock()
}

// UnregisterAll empties the registry so a test can start from a known state.
func UnregisterAll() {
	mmu.Lock()
	m = make(map[string]strata.Storage)
	mmu.Unlock()
}

// Backend returns the Storage registered under name, or nil.
func Backend(name string) strata.Storage {
	mmu.RLock()
	defer mmu.RUnlock()
	return m[name]
}

// RegisteredBackends returns the registered names in sorted order.
func RegisteredBackends() []string {
	var f []string
	mmu.RLock()
	for k := range m {
		f = append(f, k)
	}
	mmu.RUnlock()
	sort.Strings(f)
	return f
}

func init() {
	m = make(map[string]strata.Storage)
}
