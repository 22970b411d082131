// Package arena - bump-pointer allocator backing per-tile scratch memory.
package arena

import (
	"github.com/pkg/errors"
)

// DefaultGrowth is the minimum size of a chained block.
const DefaultGrowth = 64 * 1024

// ErrExhausted is returned when an allocation would exceed the arena's byte limit.
var ErrExhausted = errors.New("arena exhausted")

// block is one fixed-capacity region of the chain.
type block struct {
	buf []byte
	off int
}

// Arena owns a chain of fixed-capacity blocks with a monotonically increasing
// offset. Allocations are never freed individually: Reset rewinds every block
// and Destroy drops the chain.
//
// An Arena must not be mutated by two goroutines at the same time.
type Arena struct {
	blocks []*block
	// cur is the index of the block allocations are currently served from.
	cur    int
	growth int
	limit  int
	total  int
}

// Option configures an Arena.
type Option func(*Arena)

// WithGrowth sets the minimum size of blocks created when the chain grows.
func WithGrowth(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.growth = n
		}
	}
}

// WithLimit caps the total bytes the arena may reserve across all blocks.
// Zero means unlimited.
func WithLimit(n int) Option {
	return func(a *Arena) {
		a.limit = n
	}
}

// New creates an arena whose first block holds capacity bytes.
//
// Arguments:
//   - capacity: Size of the first block in bytes.
//   - opts: Optional growth and limit settings.
//
// Returns:
//   - *Arena: The arena.
//   - error: ErrExhausted if capacity exceeds the configured limit.
func New(capacity int, opts ...Option) (*Arena, error) {
	a := &Arena{growth: DefaultGrowth}
	for _, opt := range opts {
		opt(a)
	}
	if capacity <= 0 {
		capacity = a.growth
	}
	if err := a.grow(capacity); err != nil {
		return nil, err
	}
	return a, nil
}

// Alloc returns size zeroed bytes owned by the arena.
//
// The slice stays valid until the next Reset or Destroy. If the current block
// cannot hold size bytes, Alloc walks to the next chained block (reusing blocks
// kept by a previous Reset) or appends a new one of max(growth, size) bytes.
//
// Arguments:
//   - size: Number of bytes to allocate.
//
// Returns:
//   - []byte: A slice of exactly size bytes; its capacity is clipped so appends
//     cannot spill into neighbouring allocations.
//   - error: ErrExhausted if growing the chain would exceed the limit.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Errorf("arena: negative allocation size %d", size)
	}
	if a.blocks == nil {
		return nil, errors.New("arena: alloc after destroy")
	}

	for a.cur < len(a.blocks) {
		b := a.blocks[a.cur]
		if len(b.buf)-b.off >= size {
			out := b.buf[b.off : b.off+size : b.off+size]
			b.off += size
			clear(out)
			return out, nil
		}
		if a.cur == len(a.blocks)-1 {
			break
		}
		a.cur++
	}

	if err := a.grow(max(a.growth, size)); err != nil {
		return nil, err
	}
	a.cur = len(a.blocks) - 1
	b := a.blocks[a.cur]
	out := b.buf[:size:size]
	b.off = size
	return out, nil
}

// grow appends a block of n bytes to the chain.
func (a *Arena) grow(n int) error {
	if a.limit > 0 && a.total+n > a.limit {
		return errors.Wrapf(ErrExhausted, "need %d bytes, %d of %d reserved", n, a.total, a.limit)
	}
	a.blocks = append(a.blocks, &block{buf: make([]byte, n)})
	a.total += n
	return nil
}

// Reset rewinds every block's offset to zero without releasing memory.
func (a *Arena) Reset() {
	for _, b := range a.blocks {
		b.off = 0
	}
	a.cur = 0
}

// Destroy releases all blocks. The arena cannot be used afterwards.
func (a *Arena) Destroy() {
	a.blocks = nil
	a.cur = 0
	a.total = 0
}

// Used returns the number of bytes handed out since the last Reset.
func (a *Arena) Used() int {
	n := 0
	for _, b := range a.blocks {
		n += b.off
	}
	return n
}

// Capacity returns the number of bytes reserved across all blocks.
func (a *Arena) Capacity() int {
	return a.total
}

// Blocks returns the length of the chain.
func (a *Arena) Blocks() int {
	return len(a.blocks)
}
