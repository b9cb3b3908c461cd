package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type Task func(ctx context.Context) error

// Every runs task on a fixed interval until ctx is cancelled, with one
// immediate run up front. Used for the reply-watch polling loop.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	// run immediately
	go func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				log.Printf("[%s] error: %v", name, err)
			}
		}
	}
}

// Cron drives the daily campaign trigger off a standard 5-field cron
// expression, so "run at 08:30" survives restarts without drift.
type Cron struct {
	c *cron.Cron
}

// StartCron schedules task at expr and starts the scheduler. The returned
// Cron keeps running until Stop is called.
func StartCron(ctx context.Context, expr, name string, task Task) (*Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		log.Printf("[%s] cron fire", name)
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("[%s] scheduled cron=%q", name, expr)
	return &Cron{c: c}, nil
}

// Stop halts scheduling and waits for a running task to finish.
func (s *Cron) Stop() {
	if s == nil || s.c == nil {
		return
	}
	<-s.c.Stop().Done()
}
