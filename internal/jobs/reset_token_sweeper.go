package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredResetTokenStore clears reset tokens that can no longer be redeemed
type ExpiredResetTokenStore interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int, error)
}

// ResetTokenSweeper periodically removes expired password reset tokens so
// stale token hashes do not linger on user records
type ResetTokenSweeper struct {
	store    ExpiredResetTokenStore
	interval time.Duration
	delay    time.Duration
	now      func() time.Time
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// ResetTokenSweeperConfig holds configuration for the sweeper
type ResetTokenSweeperConfig struct {
	Store    ExpiredResetTokenStore
	Interval time.Duration // Default: 10 minutes
	// Delay before the first sweep. Default: 5 seconds
	Delay  time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// NewResetTokenSweeper creates a new sweeper job
func NewResetTokenSweeper(cfg ResetTokenSweeperConfig) *ResetTokenSweeper {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.Delay == 0 {
		cfg.Delay = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ResetTokenSweeper{
		store:    cfg.Store,
		interval: cfg.Interval,
		delay:    cfg.Delay,
		now:      cfg.Now,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins sweeping in the background
func (s *ResetTokenSweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	s.logger.Info("reset token sweeper started", slog.Duration("interval", s.interval))
}

// Stop waits for the running sweep to finish and stops the job
func (s *ResetTokenSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("reset token sweeper stopped")
}

func (s *ResetTokenSweeper) run() {
	defer s.wg.Done()

	select {
	case <-time.After(s.delay):
	case <-s.stopCh:
		return
	}
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *ResetTokenSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("failed to clear expired reset tokens", slog.String("error", err.Error()))
	}
}

// RunOnce clears expired tokens once and returns how many were removed
func (s *ResetTokenSweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.store.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("cleared expired reset tokens", slog.Int("count", n))
	}
	return n, nil
}

// IsRunning returns whether the sweeper is running
func (s *ResetTokenSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
