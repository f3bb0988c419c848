package worker

import (
	"runtime"

	"github.com/getsentry/sentry-go"
)

var workerQueue = make(chan func(), runtime.NumCPU()*4)

func init() {
	for i := 0; i < runtime.NumCPU(); i++ {
		go worker()
	}
}

func worker() {
	for {
		f, ok := <-workerQueue
		if !ok {
			return
		}
		run(f)
	}
}

// run executes a single job. A panicking job is reported and the worker keeps running.
func run(f func()) {
	defer func() {
		if v := recover(); v != nil {
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("component", "worker")
			})
			hub.Recover(v)
		}
	}()
	f()
}

// Submit queues f to run on one of the background workers.
func Submit(f func()) {
	workerQueue <- f
}
