package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/services"
)

type Auditor interface {
	Run(ctx context.Context) (services.AuditReport, error)
}

// AuditScheduler runs the balance audit once at start and then on every
// tick of interval.
type AuditScheduler struct {
	auditor  Auditor
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    services.AuditReport
}

func NewAuditScheduler(auditor Auditor, interval time.Duration, logger *log.Logger) *AuditScheduler {
	if logger == nil {
		logger = log.Nop()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &AuditScheduler{
		auditor:  auditor,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentAudit),
	}
}

// Start begins the audit loop. Returns an error if already running.
func (s *AuditScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("audit scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Audit scheduler started", "interval", s.interval)
	return nil
}

// Stop waits for an in-flight audit to finish, or for ctx to expire.
func (s *AuditScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Audit scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Audit scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *AuditScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastReport returns the most recent completed audit.
func (s *AuditScheduler) LastReport() services.AuditReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *AuditScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *AuditScheduler) runOnce(ctx context.Context) {
	report, err := s.auditor.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "Balance audit failed", log.FieldOperation, log.OpAudit, log.FieldError, err)
		}
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if !report.OK() {
		s.logger.WarnContext(ctx, "Balance audit found drift",
			"checked", report.Checked,
			"drifts", len(report.Drifts))
	}
}
