// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AustinWp/soul-agent/internal/dailylog"
	"github.com/AustinWp/soul-agent/internal/frontmatter"
	"github.com/AustinWp/soul-agent/internal/llm"
	"github.com/AustinWp/soul-agent/internal/todo"
	"github.com/AustinWp/soul-agent/internal/vault"
)

// Scheduler triggers report generation once a day at a configured local
// time, persisting the result to insights/daily-YYYY-MM-DD.md.
type Scheduler struct {
	Vault     *vault.Vault
	DailyLog  *dailylog.Store
	Todos     *todo.Store
	Provider  llm.Provider
	DailyTime string // "HH:MM", local
	Logger    *slog.Logger

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewScheduler constructs a Scheduler. dailyTime defaults to "20:00" when empty.
func NewScheduler(v *vault.Vault, dl *dailylog.Store, todos *todo.Store, provider llm.Provider, dailyTime string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if dailyTime == "" {
		dailyTime = "20:00"
	}
	return &Scheduler{
		Vault:     v,
		DailyLog:  dl,
		Todos:     todos,
		Provider:  provider,
		DailyTime: dailyTime,
		Logger:    logger,
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Run blocks, firing GenerateAndPersist once at each day's DailyTime, until
// Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.stopped)

	for {
		wait := time.Until(s.nextFire(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			date := time.Now().Local().Format(dateLayout)
			if err := s.GenerateAndPersist(ctx, date); err != nil {
				s.Logger.Warn("insight.scheduler.generate.error", "err", err)
			} else {
				s.Logger.Info("insight.scheduler.generate.success", "date", date)
			}
		}
	}
}

// nextFire returns the next wall-clock instant matching DailyTime, today if
// it hasn't passed yet, otherwise tomorrow.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	var hh, mm int
	if _, err := fmt.Sscanf(s.DailyTime, "%d:%d", &hh, &mm); err != nil {
		hh, mm = 20, 0
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// GenerateAndPersist generates the report for date and writes it to
// insights/daily-<date>.md with lifecycle frontmatter.
func (s *Scheduler) GenerateAndPersist(ctx context.Context, date string) error {
	report, err := Generate(ctx, date, s.DailyLog, s.Todos, s.Provider)
	if err != nil {
		return err
	}

	fields := map[string]string{"type": "insight"}
	frontmatter.AddLifecycle(fields, "P2")
	content := frontmatter.Build(fields, report.Markdown())

	return s.Vault.Write(vault.DirInsights, "daily-"+date+".md", content)
}

// Stop signals the scheduler to exit and blocks until it does.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped
}
