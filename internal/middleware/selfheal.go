// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultSelfHealEvery bounds how often one process asks the scheduler
// whether a batch is overdue.
const DefaultSelfHealEvery = time.Minute

// OverdueChecker runs a missed batch when the schedule is overdue and
// reports whether it did.
type OverdueChecker interface {
	CheckOverdue(ctx context.Context) (bool, error)
}

// SelfHeal triggers an overdue check in the background on public page
// loads, so a site whose scheduler missed its slot catches up on the next
// visit. The request itself never waits for the batch. Checks are spaced
// at least every apart within a process and never overlap; cross-process
// dedupe is the checker's job.
func SelfHeal(checker OverdueChecker, every time.Duration) func(http.Handler) http.Handler {
	if every <= 0 {
		every = DefaultSelfHealEvery
	}
	var (
		last    atomic.Int64
		running atomic.Bool
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				now := time.Now().UnixNano()
				prev := last.Load()
				if now-prev >= int64(every) && last.CompareAndSwap(prev, now) && running.CompareAndSwap(false, true) {
					ctx := context.WithoutCancel(r.Context())
					go func() {
						defer running.Store(false)
						ran, err := checker.CheckOverdue(ctx)
						if err != nil {
							slog.Error("self-heal check failed", "error", err)
							return
						}
						if ran {
							slog.Info("self-heal ran an overdue batch")
						}
					}()
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
