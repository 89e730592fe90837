package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	keyRateSchedule = "@every 1h"
	cleanupSchedule = "@every 10m"
	jobTimeout      = 2 * time.Minute
)

// DigestSender delivers a narrative by e-mail
type DigestSender interface {
	SendDigest(to []string, insight *models.Insight) error
}

// Cleaner drops idle per-client state
type Cleaner interface {
	Cleanup()
}

// Scheduler runs the periodic background jobs
type Scheduler struct {
	cron    *cron.Cron
	svc     *service.Service
	cfg     *config.Config
	log     *logrus.Logger
	digest  DigestSender
	limiter Cleaner
}

type job struct {
	name     string
	schedule string
	run      func()
}

// Option configures optional jobs
type Option func(*Scheduler)

// WithDigest enables the e-mailed insight digest
func WithDigest(d DigestSender) Option {
	return func(s *Scheduler) { s.digest = d }
}

// WithLimiter enables periodic rate limiter cleanup
func WithLimiter(c Cleaner) Option {
	return func(s *Scheduler) { s.limiter = c }
}

// New creates a scheduler and registers the jobs enabled by cfg
func New(svc *service.Service, cfg *config.Config, log *logrus.Logger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(log)),
			cron.SkipIfStillRunning(cron.PrintfLogger(log)),
		)),
		svc: svc,
		cfg: cfg,
		log: log,
	}
	for _, opt := range opts {
		opt(s)
	}

	jobs := []job{
		{"reload", cfg.ReloadSchedule, s.reloadDataset},
	}
	if cfg.KeyRateURL != "" {
		jobs = append(jobs, job{"key-rate", keyRateSchedule, s.refreshKeyRate})
	}
	if s.limiter != nil {
		jobs = append(jobs, job{"limiter-cleanup", cleanupSchedule, s.limiter.Cleanup})
	}
	if cfg.DigestSchedule != "" {
		if s.digest == nil || !svc.NarratorEnabled() {
			log.Warn("DIGEST_SCHEDULE is set but no narrator or mailer is configured; digest disabled")
		} else {
			jobs = append(jobs, job{"digest", cfg.DigestSchedule, s.sendDigest})
		}
	}

	for _, j := range jobs {
		if j.schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.schedule, j.run); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s job: %w", j.schedule, j.name, err)
		}
		s.log.Infof("Scheduled %s job: %s", j.name, j.schedule)
	}
	return s, nil
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reloadDataset() {
	if _, err := s.svc.Reload(false); err != nil {
		s.log.Errorf("Scheduled reload failed: %v", err)
	}
}

func (s *Scheduler) refreshKeyRate() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.svc.RefreshKeyRate(ctx); err != nil {
		s.log.Errorf("Scheduled key rate refresh failed: %v", err)
	}
}

func (s *Scheduler) sendDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	insight, err := s.svc.Narrate(ctx, models.FilterState{})
	if err != nil {
		s.log.Errorf("Digest narration failed: %v", err)
		return
	}
	if err := s.digest.SendDigest(s.cfg.DigestRecipients, insight); err != nil {
		s.log.Errorf("Digest delivery failed: %v", err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"records":    insight.TotalRecords,
		"fallback":   insight.Fallback,
		"recipients": len(s.cfg.DigestRecipients),
	}).Info("Digest sent")
}
