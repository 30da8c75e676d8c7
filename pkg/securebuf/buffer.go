package securebuf

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
)

// DefaultCapacity is the credential capacity used when none is configured.
const DefaultCapacity = 1024

// ErrOverflow is returned by Append when the bytes do not fit in the remaining capacity.
var ErrOverflow = errors.New("securebuf: credential exceeds capacity")

// Buffer is a fixed-capacity credential container.
//
// Buffer is not safe for concurrent use; it is owned by a single goroutine.
type Buffer struct {
	mem *memguard.LockedBuffer
	n   int
}

// New allocates a Buffer able to hold capacity bytes.
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("securebuf: invalid capacity %d", capacity)
	}

	mem := memguard.NewBuffer(capacity)
	if !mem.IsAlive() {
		return nil, errors.New("securebuf: failed to allocate guarded memory")
	}

	return &Buffer{mem: mem}, nil
}

// Reset overwrites the full capacity with zeros and sets the length to 0.
func (b *Buffer) Reset() {
	b.mem.Wipe()
	b.n = 0
}

// Append copies p after the current contents.
// Nothing is copied when p does not fit, in which case ErrOverflow is returned.
func (b *Buffer) Append(p []byte) error {
	if len(p) > b.mem.Size()-b.n {
		return ErrOverflow
	}

	copy(b.mem.Bytes()[b.n:], p)
	b.n += len(p)

	return nil
}

// Borrow lends the valid region [0, Len) to fn.
// fn must not retain the slice after it returns.
func (b *Buffer) Borrow(fn func(credential []byte)) {
	fn(b.mem.Bytes()[:b.n:b.n])
}

// Len returns the number of credential bytes currently held.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return b.mem.Size()
}

// Zeroed reports whether every byte of the capacity is zero.
func (b *Buffer) Zeroed() bool {
	for _, c := range b.mem.Bytes() {
		if c != 0 {
			return false
		}
	}

	return true
}

// Destroy wipes and releases the guarded memory. The Buffer must not be used afterward.
func (b *Buffer) Destroy() {
	b.n = 0
	b.mem.Destroy()
}

// Wipe overwrites p with zeros. Use it for scratch copies such as decoded key bytes.
func Wipe(p []byte) {
	memguard.WipeBytes(p)
}
