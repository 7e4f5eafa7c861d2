package main

import (
	"context"
	"log"
	"time"

	"nyxCloud/internal/services"
)

const sweepTimeout = 5 * time.Minute

// startSweeper runs the reconciliation sweep once a day at local midnight.
func startSweeper(ctx context.Context, svc *services.ReconcileService, infoLog, errorLog *log.Logger) {
	if svc == nil {
		return
	}

	go func() {
		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
			err := svc.Sweep(runCtx)
			cancel()
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("sweeper: sweep failed: %v", err)
				}
			} else if infoLog != nil {
				infoLog.Printf("sweeper: daily sweep finished")
			}
		}

		for {
			timer := time.NewTimer(time.Until(nextMidnight(time.Now())))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				runOnce()
			}
		}
	}()
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
