package fifoqueue

import (
	"sync"

	"github.com/gammazero/deque"
)

// FIFOQueue implements variable size synchronized FIFO queue.
// Writers never block, readers block until an element is available or the queue is closed
type FIFOQueue[T any] struct {
	d        *deque.Deque[T]
	mutex    sync.Mutex
	nonEmpty *sync.Cond
	closing  bool
	closed   bool
}

func New[T any]() *FIFOQueue[T] {
	ret := &FIFOQueue[T]{
		d: new(deque.Deque[T]),
	}
	ret.nonEmpty = sync.NewCond(&ret.mutex)
	return ret
}

// Write pushes element. Returns false if the queue is closing, the element is not pushed
func (q *FIFOQueue[T]) Write(elem T) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closing || q.closed {
		return false
	}
	q.d.PushBack(elem)
	q.nonEmpty.Signal()
	return true
}

// CloseNow closes FIFOQueue immediately. The elements in the buffer are not read anymore
func (q *FIFOQueue[T]) CloseNow() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed = true
	q.nonEmpty.Broadcast()
}

// Close closes FIFOQueue deferred until all elements are read
func (q *FIFOQueue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closing = true
	q.nonEmpty.Broadcast()
}

func (q *FIFOQueue[T]) read() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for !q.closed && q.d.Len() == 0 && !q.closing {
		q.nonEmpty.Wait()
	}
	if q.closed || q.d.Len() == 0 {
		var nilT T
		return nilT, false
	}
	return q.d.PopFront(), true
}

// Consume reads all elements of the queue until it is closed. Many consumers may run in parallel
func (q *FIFOQueue[T]) Consume(fun func(elem T)) {
	for {
		e, ok := q.read()
		if !ok {
			break
		}
		fun(e)
	}
}

// Len returns number of elements in the queue. Non-deterministic
func (q *FIFOQueue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.d.Len()
}
