package nearkey

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultPoolSize matches the number of relayer keys registered on the
// account; changing it requires re-running the key bootstrap.
const DefaultPoolSize = 10

var ErrNoCounter = errors.New("nearkey: selection counter client is not configured")

// RangeError reports a pool index outside [0, Size). This is a programmer
// error, not external input, so it is surfaced as a distinct type.
type RangeError struct {
	Index int
	Size  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("nearkey: index %d out of pool range [0, %d)", e.Index, e.Size)
}

// Counter is the externally durable atomic increment the pool coordinates
// through. Implementations must guarantee that concurrent callers never
// observe the same post-increment value.
type Counter interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// Pool holds a fixed set of derived key pairs and selects them round-robin
// across memory-isolated processes. Keys are derived lazily on first use and
// memoized for the process lifetime; only a plain integer ever crosses the
// process boundary.
type Pool struct {
	seed       string
	size       int
	counter    Counter
	counterKey string

	mu      sync.Mutex
	entries []*KeyPair
}

// NewPool builds a pool of size keys. The counter client is a constructor
// dependency on purpose: a pool that cannot coordinate selection must not
// exist, because falling back to a single key would reintroduce the nonce
// collisions the pool eliminates.
func NewPool(seed string, size int, counter Counter, counterKey string) (*Pool, error) {
	if counter == nil {
		return nil, ErrNoCounter
	}
	p, err := NewStaticPool(seed, size)
	if err != nil {
		return nil, err
	}
	p.counter = counter
	p.counterKey = counterKey
	return p, nil
}

// NewStaticPool builds a pool without a selection counter. It serves the
// key-registration bootstrap, which only reads keys by index; SelectNext on
// a static pool always fails.
func NewStaticPool(seed string, size int) (*Pool, error) {
	if seed == "" {
		return nil, ErrEmptySeed
	}
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		seed:    seed,
		size:    size,
		entries: make([]*KeyPair, size),
	}, nil
}

func (p *Pool) Size() int {
	return p.size
}

// KeyByIndex returns the derived pair for index i, deriving and caching it
// on first use.
func (p *Pool) KeyByIndex(i int) (KeyPair, error) {
	if i < 0 || i >= p.size {
		return KeyPair{}, &RangeError{Index: i, Size: p.size}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries[i] == nil {
		pair, err := Derive(p.seed, i)
		if err != nil {
			return KeyPair{}, err
		}
		p.entries[i] = &pair
	}
	return *p.entries[i], nil
}

// SelectNext increments the shared counter and maps the new value onto a pool
// index: (value-1) mod size, so counter value 1 selects index 0. The counter
// is the only cross-process synchronization point; two concurrent selections
// can never receive the same value for one tick.
func (p *Pool) SelectNext(ctx context.Context) (KeyPair, int, error) {
	if p.counter == nil {
		return KeyPair{}, 0, ErrNoCounter
	}
	value, err := p.counter.Increment(ctx, p.counterKey)
	if err != nil {
		return KeyPair{}, 0, fmt.Errorf("nearkey: counter increment: %w", err)
	}
	index := int((value - 1) % int64(p.size))
	if index < 0 {
		index += p.size
	}
	pair, err := p.KeyByIndex(index)
	if err != nil {
		return KeyPair{}, 0, err
	}
	return pair, index, nil
}

// AllPublicKeys returns the textual public key of every slot, in index order.
// Used once, out of band, to register each key's signing permission on the
// relayer account.
func (p *Pool) AllPublicKeys() ([]string, error) {
	keys := make([]string, p.size)
	for i := range keys {
		pair, err := p.KeyByIndex(i)
		if err != nil {
			return nil, err
		}
		keys[i] = pair.PublicKeyString()
	}
	return keys, nil
}
