package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"trio-driver/pkg/logger"
)

// Repository is the persistence contract for audit events. It is
// append-only: there are no Update or Delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Device == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}
	return s.repo.Append(ctx, e)
}

// Command describes a command for RecordCommand.
type Command struct {
	Type    EventType
	Device  string
	CallID  string
	Message string
}

// RecordCommand audits a command and its result, taking the actor from ctx.
// Audit failures are logged and otherwise ignored. Safe on a nil *Service.
func (s *Service) RecordCommand(ctx context.Context, cmd Command, cmdErr error) {
	if s == nil {
		return
	}
	e := Event{
		Type:    cmd.Type,
		Device:  cmd.Device,
		CallID:  cmd.CallID,
		Message: cmd.Message,
		Outcome: OutcomeOK,
	}
	if a, ok := ActorFrom(ctx); ok {
		e.Actor, e.ActorRole, e.IPAddress = a.Subject, a.Role, a.IP
	}
	if cmdErr != nil {
		e.Outcome = OutcomeFailed
		e.Error = cmdErr.Error()
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", cmd.Type, "err", err)
	}
}
