// Package syncutil provides concurrency utilities for the legal retrieval engine.
//
// This is an internal package and is not part of the public API. The legal
// hybrid retriever in rag/retriever uses it for bounded parallel execution.
//
// # WorkerPool
//
// [WorkerPool] runs each submitted task on its own goroutine and limits how
// many run at once to a configurable maximum. It provides a Wait method to
// block until all submitted work completes:
//
//	pool := syncutil.NewWorkerPool(4)
//	defer pool.Close()
//	for _, item := range items {
//	    item := item
//	    pool.Submit(func() { process(item) })
//	}
//	pool.Wait()
//
// Once closed via [WorkerPool.Close], subsequent calls to Submit return
// [ErrPoolClosed].
//
// # Semaphore
//
// [Semaphore] provides a counting semaphore backed by a buffered channel.
// It limits the number of concurrent operations to its capacity:
//
//	sem := syncutil.NewSemaphore(10)
//	sem.Acquire()      // blocks until a slot is available
//	defer sem.Release()
//
// The non-blocking [Semaphore.TryAcquire] variant returns false immediately
// if the semaphore is at capacity.
package syncutil
