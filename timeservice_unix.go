//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"example.com/server-time/core/serverdate"
)

// handleResume treats SIGCONT, sent when a stopped process continues, as
// the clock's observing context becoming active again.
func handleResume(ctx context.Context, c *serverdate.Clock) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGCONT)
	defer signal.Stop(sigs)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			log.Info("process continued, resynchronizing")
			c.SetActive(false)
			c.SetActive(true)
		}
	}
}
