package futures

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var teardownOnce sync.Once

// InstallTeardownHook arms a process-wide hook that, on SIGINT/SIGTERM,
// logs (via onAbort) how many RunAsync workers were still in flight and
// exits immediately. This is the Go analogue of the reference
// implementation's atexit-registered subprocess killer: goroutines
// cannot be force-killed, but an abnormal exit must not hang waiting on
// one, so the process exits rather than blocking on Future.Get forever.
func InstallTeardownHook(onAbort func(activeWorkers int)) {
	teardownOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-ch
			if onAbort != nil {
				onAbort(ActiveWorkers())
			}
			os.Exit(1)
		}()
	})
}
