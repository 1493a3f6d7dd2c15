// Package cell implements a shared, mutable value container with dynamic
// borrow checking.
//
// A Cell is a handle to a box holding one value. Handles created with Clone
// share the same box; the box keeps its value as long as at least one handle
// has not been released. Access goes through borrows: any number of read
// borrows may be outstanding at once, or a single write borrow, but never
// both. A request that would violate this fails with ErrBorrowConflict
// instead of aliasing the value.
//
// Cells are confined to a single goroutine. The borrow state is a plain
// counter, not a lock: it detects overlapping borrows caused by reentrant
// code on the same goroutine, and does nothing to serialize goroutines.
package cell

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrBorrowConflict is returned when a borrow would overlap with an
	// incompatible outstanding borrow.
	ErrBorrowConflict = errors.New("cell is already borrowed")
	// ErrReleased is returned when a released handle is used.
	ErrReleased = errors.New("cell handle has been released")
)

var lastID atomic.Uint64

// Borrow state values other than non-negative reader counts.
const writing = -1

type box[T any] struct {
	id     uint64
	value  T
	refs   int
	borrow int
}

// Cell is a handle to a shared value of type T.
type Cell[T any] struct {
	b        *box[T]
	released bool
}

// New creates a cell holding v, with one owner.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{b: &box[T]{id: lastID.Add(1), value: v, refs: 1}}
}

// Clone returns a new handle sharing the storage of c. It never copies the
// value. Cloning a released handle panics.
func (c *Cell[T]) Clone() *Cell[T] {
	if c.released {
		panic(fmt.Errorf("clone cell %d: %w", c.b.id, ErrReleased))
	}
	c.b.refs++
	return &Cell[T]{b: c.b}
}

// Release drops the share held by this handle. When the last share is
// dropped, the value is cleared. Releasing a handle more than once is a no-op.
func (c *Cell[T]) Release() {
	if c.released {
		return
	}
	c.released = true
	c.b.refs--
	if c.b.refs == 0 {
		var zero T
		c.b.value = zero
	}
}

// ID returns an identifier that is shared by all handles of the same cell and
// unique within the process.
func (c *Cell[T]) ID() uint64 { return c.b.id }

// Refs returns the number of handles that have not been released.
func (c *Cell[T]) Refs() int { return c.b.refs }

// Released returns whether this handle has been released.
func (c *Cell[T]) Released() bool { return c.released }

// Same returns whether c and other share storage.
func (c *Cell[T]) Same(other *Cell[T]) bool { return c.b == other.b }

// Borrow acquires a read borrow. It fails if a write borrow is outstanding.
func (c *Cell[T]) Borrow() (*Ref[T], error) {
	if c.released {
		return nil, ErrReleased
	}
	if c.b.borrow == writing {
		return nil, ErrBorrowConflict
	}
	c.b.borrow++
	return &Ref[T]{b: c.b}, nil
}

// BorrowMut acquires a write borrow. It fails if any other borrow is
// outstanding.
func (c *Cell[T]) BorrowMut() (*RefMut[T], error) {
	if c.released {
		return nil, ErrReleased
	}
	if c.b.borrow != 0 {
		return nil, ErrBorrowConflict
	}
	c.b.borrow = writing
	return &RefMut[T]{b: c.b}, nil
}

// Load returns a copy of the value, holding a read borrow for the duration of
// the copy.
func (c *Cell[T]) Load() (T, error) {
	r, err := c.Borrow()
	if err != nil {
		var zero T
		return zero, err
	}
	defer r.Release()
	return r.Value(), nil
}

// Store overwrites the value, holding a write borrow for the duration of the
// write.
func (c *Cell[T]) Store(v T) error {
	w, err := c.BorrowMut()
	if err != nil {
		return err
	}
	defer w.Release()
	w.Set(v)
	return nil
}

// Ref is an outstanding read borrow.
type Ref[T any] struct {
	b    *box[T]
	done bool
}

// Value returns the borrowed value.
func (r *Ref[T]) Value() T {
	if r.done {
		panic("cell: use of released read borrow")
	}
	return r.b.value
}

// Release ends the borrow. It is safe to call more than once.
func (r *Ref[T]) Release() {
	if !r.done {
		r.done = true
		r.b.borrow--
	}
}

// RefMut is an outstanding write borrow.
type RefMut[T any] struct {
	b    *box[T]
	done bool
}

// Value returns the borrowed value.
func (w *RefMut[T]) Value() T {
	w.check()
	return w.b.value
}

// Ptr returns a pointer to the stored value, valid until Release.
func (w *RefMut[T]) Ptr() *T {
	w.check()
	return &w.b.value
}

// Set overwrites the stored value.
func (w *RefMut[T]) Set(v T) {
	w.check()
	w.b.value = v
}

// Release ends the borrow. It is safe to call more than once.
func (w *RefMut[T]) Release() {
	if !w.done {
		w.done = true
		w.b.borrow = 0
	}
}

func (w *RefMut[T]) check() {
	if w.done {
		panic("cell: use of released write borrow")
	}
}
