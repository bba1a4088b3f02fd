package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/repository"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

// ErrInvalidPort rejects a request before any state is touched.
var ErrInvalidPort = errors.New("invalid port number")

// Broadcaster pushes reconciled state and fresh alerts to dashboard
// listeners. Delivery is best-effort; the core never fails a request
// because a broadcast did not go out.
type Broadcaster interface {
	PublishUpdate(v interface{})
}

// Notifier delivers critical alerts to an external channel (SNS).
type Notifier interface {
	NotifyAlert(alert domain.Alert) error
}

// Archiver receives alert rows about to be purged by the retention sweep.
type Archiver interface {
	ArchiveAlerts(ctx context.Context, key string, alerts []domain.Alert) error
}

type Options struct {
	Ports           int
	IntervalMinutes int
	StoreTimeout    time.Duration
	Broadcaster     Broadcaster
	Notifier        Notifier
	Archiver        Archiver
	Now             func() time.Time
}

// Service is the state-reconciliation and aggregation core. All read-then-
// write sequences run inside a per-port critical section; samples for
// different ports never block one another.
type Service struct {
	store     repository.Store
	registry  *settings.Registry
	ports     int
	interval  int
	timeout   time.Duration
	broadcast Broadcaster
	notifier  Notifier
	archiver  Archiver
	now       func() time.Time
	locks     portLocks
}

func New(store repository.Store, registry *settings.Registry, opts Options) *Service {
	if opts.Ports <= 0 {
		opts.Ports = 4
	}
	if opts.IntervalMinutes <= 0 {
		opts.IntervalMinutes = 1
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		registry:  registry,
		ports:     opts.Ports,
		interval:  opts.IntervalMinutes,
		timeout:   opts.StoreTimeout,
		broadcast: opts.Broadcaster,
		notifier:  opts.Notifier,
		archiver:  opts.Archiver,
		now:       opts.Now,
		locks:     portLocks{locks: make(map[int]*sync.Mutex)},
	}
}

// Ports returns the number of controllable ports in this deployment.
func (s *Service) Ports() int { return s.ports }

// ValidatePort rejects port numbers outside [1, N].
func (s *Service) ValidatePort(port int) error {
	if port < 1 || port > s.ports {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidPort, port, s.ports)
	}
	return nil
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) publish(v interface{}) {
	if s.broadcast != nil {
		s.broadcast.PublishUpdate(v)
	}
}

// portLocks hands out one mutex per port so concurrent requests for the
// same port serialize while other ports proceed.
type portLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func (p *portLocks) lock(port int) func() {
	p.mu.Lock()
	l, ok := p.locks[port]
	if !ok {
		l = &sync.Mutex{}
		p.locks[port] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}
