package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/upb/taskhub/internal/rbac"
	"github.com/upb/taskhub/models"
	"github.com/upb/taskhub/repositories"
	"go.uber.org/zap"
)

// Event is a queued audit entry
type Event struct {
	Log *models.AuditLog
}

// RequestMeta identifies the HTTP request an event originated from
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *Event
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
	stopped     bool
	dropped     atomic.Uint64
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *Event, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits up to timeout for queued ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	pending := len(s.eventChan)
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an event without blocking. When the buffer is full the
// event is dropped and an error returned.
func (s *AuditService) LogEvent(event *Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("resource", event.Log.ResourceID))
		return fmt.Errorf("audit event buffer full")
	}
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// List returns stored audit logs, newest first
func (s *AuditService) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	logs, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
		Dropped:       s.dropped.Load(),
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	Dropped       uint64
}

// withActor attaches user as the actor when its ID is a UUID. Other IDs are
// kept in details so the entry stays attributable.
func withActor(log *models.AuditLog, user *rbac.User, details map[string]interface{}) {
	if user == nil {
		return
	}
	role := string(user.NormalizedRole())
	if id, err := uuid.Parse(user.ID); err == nil {
		log.WithActor(id, role)
		return
	}
	log.ActorRole = role
	details["actor"] = user.ID
}

// RecordAccessDenied queues an access_denied event. resourceType is "route"
// for API calls and "page" for page loads.
func (s *AuditService) RecordAccessDenied(user *rbac.User, resourceType, resource string, decision rbac.Decision, meta RequestMeta) error {
	details := map[string]interface{}{
		"reason": string(decision.Reason),
	}
	log := models.NewAuditLog(models.AuditActionAccessDenied, resourceType).
		WithResource(resource).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	withActor(log, user, details)
	log.WithDetails(details)

	return s.LogEvent(&Event{Log: log})
}

// RecordRoleChanged queues a role_changed event for target
func (s *AuditService) RecordRoleChanged(actor *rbac.User, target uuid.UUID, from, to rbac.Role, meta RequestMeta) error {
	details := map[string]interface{}{
		"from": string(from),
		"to":   string(to),
	}
	log := models.NewAuditLog(models.AuditActionRoleChanged, "user").
		WithResource(target.String()).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	withActor(log, actor, details)
	log.WithDetails(details)

	return s.LogEvent(&Event{Log: log})
}
