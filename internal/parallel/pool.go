// Package parallel provides the worker pool the native backend uses to
// run compute-kernel invocations across CPU cores.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// GroupSize is the number of invocations one pool task covers. It
// mirrors the shader workgroup width so both backends chunk dispatches
// the same way.
const GroupSize = 64

// Pool is a fixed set of goroutines executing kernel dispatch tasks.
//
// Each worker owns a buffered queue and steals from its siblings when
// the queue runs dry, which keeps cores busy when clipped triangles
// make some chunks slower than others.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds one buffered task queue per worker.
	queues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to exit.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting tasks.
	running atomic.Bool
}

// NewPool creates a pool with the given number of workers and starts
// them. Zero or negative means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range p.queues {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return

		case task := <-own:
			if task != nil {
				task()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			// Nothing to steal: block on the own queue.
			select {
			case <-p.done:
				p.drain(own)
				return
			case task := <-own:
				if task != nil {
					task()
				}
			}
		}
	}
}

// drain executes whatever is left in a queue during shutdown.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			if task != nil {
				task()
			}
		default:
			return
		}
	}
}

// steal takes one task from another worker's queue, or returns nil.
func (p *Pool) steal(myID int) func() {
	for i := range p.queues {
		if i == myID {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// Dispatch runs fn for every invocation index in [0, count), chunked
// into GroupSize-wide tasks spread round-robin across the workers, and
// blocks until the whole grid has executed. On a closed pool the grid
// runs inline on the caller.
func (p *Pool) Dispatch(count uint32, fn func(i uint32)) {
	if count == 0 {
		return
	}
	if !p.running.Load() {
		for i := uint32(0); i < count; i++ {
			fn(i)
		}
		return
	}

	groups := int((count + GroupSize - 1) / GroupSize)

	var pending sync.WaitGroup
	pending.Add(groups)

	for g := 0; g < groups; g++ {
		start := uint32(g) * GroupSize
		end := start + GroupSize
		if end > count {
			end = count
		}
		task := func() {
			defer pending.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}

		select {
		case p.queues[g%p.workers] <- task:
		case <-p.done:
			// Pool is closing: run the chunk inline.
			task()
		}
	}

	pending.Wait()
}

// Close stops the workers after the queued tasks finish. It is safe to
// call more than once.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}
