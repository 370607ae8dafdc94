// Package futures implements the concurrency runtime described for the
// attribution pipeline: a fork-and-call primitive returning a Future, a
// bulk parallel map over a worker pool, and a process-wide teardown
// hook that stops outstanding workers on abnormal exit.
//
// The reference implementation uses forked helper processes because its
// host language handles CPU-bound work in threads poorly. Go's
// goroutines make that tradeoff unnecessary, so RunAsync and Bulk are
// implemented directly over goroutines and channels; the public
// contract (an explicit synchronous-execution override for
// deterministic testing) is preserved exactly, and Bulk returns its
// results in input order.
package futures

import (
	"os"
	"runtime"
	"sync"
)

// DisableAsync mirrors SUPERSIZE_DISABLE_ASYNC=1: when true, RunAsync and
// Bulk execute synchronously on the calling goroutine. Read once at
// package init so tests can override it deterministically via
// SetDisableAsyncForTesting.
var DisableAsync = os.Getenv("SUPERSIZE_DISABLE_ASYNC") == "1"

// SetDisableAsyncForTesting overrides DisableAsync and returns a restore
// function, for tests that need to exercise both code paths.
func SetDisableAsyncForTesting(v bool) (restore func()) {
	prev := DisableAsync
	DisableAsync = v
	return func() { DisableAsync = prev }
}

// Future is a handle to a value produced by a RunAsync call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Get blocks until the worker finishes, then returns its result or
// re-raises its error.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// RunAsync executes fn in a worker goroutine (or synchronously, if
// DisableAsync) and returns a Future for its result. The caller is free
// to perform other work between the call and Future.Get.
func RunAsync[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	run := func() {
		defer close(f.done)
		f.val, f.err = fn()
	}

	if DisableAsync {
		run()
		return f
	}

	registerWorker()
	go func() {
		defer unregisterWorker()
		run()
	}()
	return f
}

// Bulk executes fn once per element of args across a worker pool sized
// to the machine (or synchronously, if DisableAsync), returning results
// as a slice in the SAME order as args. Callers that need completion
// order rather than input order should range over args themselves and
// use RunAsync per item.
func Bulk[A any, T any](args []A, fn func(A) (T, error)) ([]T, error) {
	results := make([]T, len(args))
	errs := make([]error, len(args))

	if DisableAsync || len(args) <= 1 {
		for i, a := range args {
			results[i], errs[i] = fn(a)
		}
		return firstErrOrAll(results, errs)
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(args) {
		workers = len(args)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = fn(args[i])
			}
		}()
	}
	for i := range args {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return firstErrOrAll(results, errs)
}

func firstErrOrAll[T any](results []T, errs []error) ([]T, error) {
	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

var (
	workerMu    sync.Mutex
	workerCount int
)

func registerWorker() {
	workerMu.Lock()
	workerCount++
	workerMu.Unlock()
}

func unregisterWorker() {
	workerMu.Lock()
	workerCount--
	workerMu.Unlock()
}

// ActiveWorkers reports the number of in-flight RunAsync goroutines, for
// the teardown hook / diagnostics.
func ActiveWorkers() int {
	workerMu.Lock()
	defer workerMu.Unlock()
	return workerCount
}
