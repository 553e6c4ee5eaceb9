package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autonome/internal/core"
	"autonome/internal/events"
	"autonome/internal/ledger"
	"autonome/internal/log"
)

// WorkStore is the part of the record store the work flows touch.
type WorkStore interface {
	ledger.SessionStore
	ledger.MileageStore
	ledger.ProjectStore
}

// WorkService owns the start/stop lifecycle of work sessions and GPS trips.
type WorkService struct {
	store  WorkStore
	events events.Publisher
	logger *log.Logger
}

func NewWorkService(store WorkStore, publisher events.Publisher, logger *log.Logger) *WorkService {
	if logger == nil {
		logger = log.Default(log.ComponentLedger)
	}
	return &WorkService{store: store, events: publisher, logger: logger.WithComponent(log.ComponentLedger)}
}

type StartSessionInput struct {
	At         time.Time
	HourlyRate core.Money // zero falls back to the project's rate
	ClientID   *int64
	ProjectID  *int64
	Notes      string
	Location   *core.Coordinate
}

// StartSession opens a work session. When no rate is given and the session
// belongs to a project with a rate, the project rate is used.
func (s *WorkService) StartSession(ctx context.Context, in StartSessionInput) (core.WorkSession, error) {
	rate := in.HourlyRate
	clientID := in.ClientID
	if in.ProjectID != nil {
		p, err := s.store.GetProject(ctx, *in.ProjectID)
		switch {
		case err == nil:
			if rate.IsZero() && p.HourlyRate != nil {
				rate = *p.HourlyRate
			}
			if clientID == nil {
				clientID = p.ClientID
			}
		case errors.Is(err, ledger.ErrNotFound):
			s.logger.WarnContext(ctx, "Session references unknown project", "project_id", *in.ProjectID)
		default:
			return core.WorkSession{}, fmt.Errorf("load project: %w", err)
		}
	}

	saved, err := s.store.CreateSession(ctx, core.WorkSession{
		StartTime:     in.At,
		HourlyRate:    rate,
		ClientID:      clientID,
		ProjectID:     in.ProjectID,
		Notes:         in.Notes,
		StartLocation: in.Location,
	})
	if err != nil {
		return core.WorkSession{}, fmt.Errorf("start session: %w", err)
	}
	s.publish(ctx, events.SessionStarted, "sessions", saved.ID, 0, saved.StartTime)
	return saved, nil
}

// StopSession closes session id at end and records its earnings.
func (s *WorkService) StopSession(ctx context.Context, id int64, end time.Time, loc *core.Coordinate) (core.WorkSession, error) {
	ws, err := s.store.GetSession(ctx, id)
	if err != nil {
		return core.WorkSession{}, err
	}
	if err := ws.Stop(end); err != nil {
		return core.WorkSession{}, err
	}
	ws.EndLocation = loc
	if err := s.store.UpdateSession(ctx, ws); err != nil {
		return core.WorkSession{}, fmt.Errorf("stop session: %w", err)
	}

	s.logger.InfoContext(ctx, "Work session stopped",
		log.NewFields().WithRecord("session", ws.ID, ws.Earned().Cents, "").ToSlice()...)
	s.publish(ctx, events.SessionStopped, "sessions", ws.ID, ws.Earned().Cents, ws.StartTime)
	return ws, nil
}

// RecordTrip stores the mileage entry for a GPS trip between two samples.
func (s *WorkService) RecordTrip(ctx context.Context, start, end core.Sample, purpose string) (core.MileageEntry, error) {
	entry, err := core.NewTrip(start, end, purpose)
	if err != nil {
		return core.MileageEntry{}, err
	}
	saved, err := s.store.CreateMileage(ctx, entry)
	if err != nil {
		return core.MileageEntry{}, fmt.Errorf("record trip: %w", err)
	}
	s.logger.InfoContext(ctx, "Trip recorded", "record_id", saved.ID, "distance_km", saved.Distance)
	s.publish(ctx, events.TripRecorded, "mileage", saved.ID, 0, saved.Date)
	return saved, nil
}

func (s *WorkService) publish(ctx context.Context, typ events.Type, collection string, id, cents int64, at time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, typ, events.RecordPayload{
		Collection:  collection,
		RecordID:    id,
		AmountCents: cents,
		Date:        at,
	})
}
