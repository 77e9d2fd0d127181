package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentportal/aserver/db"
	"github.com/agentportal/aserver/internal/telephony"
	"go.uber.org/zap"
)

// AstDB family and keys that dialplan reads to route calls after hours.
const (
	BusinessHoursFamily = "BUSINESS_HOURS"
	BusinessHoursStart  = "START"
	BusinessHoursEnd    = "END"
	BusinessHoursActive = "ACTIVE"
)

const (
	scheduleID           = 1
	defaultMirrorTimeout = 10 * time.Second
)

var (
	ErrMissingParameters = errors.New("missing parameters")
	ErrScheduleNotFound  = errors.New("operating hours not configured")
	ErrScheduleCorrupted = errors.New("stored operating hours are unreadable")
)

// IsOpen reports whether the center is open at now.
//
// Forced modes win over the window. In NORMAL mode the window is the half-open
// interval [start, end). An end at or before start spans midnight, and a now
// earlier than start is read as belonging to the window that began yesterday.
// start == end is an empty window.
func IsOpen(schedule db.OperatingSchedule, now db.TimeOfDay) bool {
	switch schedule.Mode {
	case db.ModeForceOpen:
		return true
	case db.ModeForceClosed:
		return false
	}

	start, end, t := int(schedule.Start), int(schedule.End), int(now)
	if start == end {
		return false
	}
	if end < start {
		end += db.MinutesPerDay
	}
	if t < start {
		t += db.MinutesPerDay
	}
	return start <= t && t < end
}

// OperatingHoursService owns the business-hours singleton.
type OperatingHoursService struct {
	PG       *sql.DB
	Notifier telephony.Notifier
	Logger   *zap.Logger
	Location *time.Location

	now func() time.Time
}

func NewOperatingHoursService(pg *sql.DB, notifier telephony.Notifier, logger *zap.Logger, loc *time.Location) *OperatingHoursService {
	if notifier == nil {
		notifier = telephony.Nop{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &OperatingHoursService{
		PG:       pg,
		Notifier: notifier,
		Logger:   logger,
		Location: loc,
		now:      time.Now,
	}
}

// GetSchedule reads the singleton row. Stored times that do not parse are
// reported as ErrScheduleCorrupted rather than replaced with defaults.
func (s *OperatingHoursService) GetSchedule(ctx context.Context) (db.OperatingSchedule, error) {
	var schedule db.OperatingSchedule
	var start, end, mode string

	err := s.PG.QueryRowContext(ctx, `
		SELECT start_time, end_time, mode, updated_at
		FROM operating_hours
		WHERE id = $1
	`, scheduleID).Scan(&start, &end, &mode, &schedule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule, ErrScheduleNotFound
		}
		return schedule, fmt.Errorf("failed to get operating hours: %w", err)
	}

	if schedule.Start, err = db.ParseTimeOfDay(start); err != nil {
		return schedule, fmt.Errorf("%w: start: %v", ErrScheduleCorrupted, err)
	}
	if schedule.End, err = db.ParseTimeOfDay(end); err != nil {
		return schedule, fmt.Errorf("%w: end: %v", ErrScheduleCorrupted, err)
	}
	if schedule.Mode, err = db.ParseBusinessMode(mode); err != nil {
		return schedule, fmt.Errorf("%w: mode: %v", ErrScheduleCorrupted, err)
	}

	return schedule, nil
}

// Status resolves the stored schedule against the current time.
func (s *OperatingHoursService) Status(ctx context.Context) (db.OperatingHoursStatus, error) {
	schedule, err := s.GetSchedule(ctx)
	if err != nil {
		return db.OperatingHoursStatus{}, err
	}

	now := s.now()
	return db.OperatingHoursStatus{
		Start:        schedule.Start.String(),
		End:          schedule.End.String(),
		Mode:         schedule.Mode,
		BusinessMode: schedule.Mode.Code(),
		IsOpen:       IsOpen(schedule, db.TimeOfDayOf(now.In(s.Location))),
		Current:      now.UTC().Format(http.TimeFormat),
	}, nil
}

// SetSchedule validates and upserts the singleton, then mirrors it to the
// telephony platform in the background. The returned error reflects only the
// durable write.
func (s *OperatingHoursService) SetSchedule(ctx context.Context, req db.SetOperatingHoursRequest) (db.OperatingSchedule, error) {
	var schedule db.OperatingSchedule

	if strings.TrimSpace(req.Start) == "" || strings.TrimSpace(req.End) == "" {
		return schedule, ErrMissingParameters
	}

	var err error
	if schedule.Start, err = db.ParseTimeOfDay(req.Start); err != nil {
		return schedule, err
	}
	if schedule.End, err = db.ParseTimeOfDay(req.End); err != nil {
		return schedule, err
	}
	schedule.Mode = db.ModeNormal
	if req.BusinessMode != nil && *req.BusinessMode != "" {
		schedule.Mode = *req.BusinessMode
	}
	schedule.UpdatedAt = s.now()

	// Concurrent writers are serialized by the upsert itself; never read first.
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO operating_hours (id, start_time, end_time, mode, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    mode = EXCLUDED.mode,
		    updated_at = EXCLUDED.updated_at
	`, scheduleID, schedule.Start.String(), schedule.End.String(), string(schedule.Mode), schedule.UpdatedAt)
	if err != nil {
		return schedule, fmt.Errorf("failed to upsert operating hours: %w", err)
	}

	s.Logger.Info("operating hours updated",
		zap.String("start", schedule.Start.String()),
		zap.String("end", schedule.End.String()),
		zap.String("mode", string(schedule.Mode)))

	go s.Mirror(context.Background(), schedule)

	return schedule, nil
}

// Mirror writes start, end and active mode to the notifier. Each key is written
// independently; failures are logged and never returned.
func (s *OperatingHoursService) Mirror(ctx context.Context, schedule db.OperatingSchedule) {
	ctx, cancel := context.WithTimeout(ctx, defaultMirrorTimeout)
	defer cancel()

	facts := [][2]string{
		{BusinessHoursStart, schedule.Start.String()},
		{BusinessHoursEnd, schedule.End.String()},
		{BusinessHoursActive, strconv.Itoa(schedule.Mode.Code())},
	}
	for _, f := range facts {
		if err := s.Notifier.Put(ctx, BusinessHoursFamily, f[0], f[1]); err != nil {
			s.Logger.Warn("failed to mirror operating hours",
				zap.String("key", f[0]),
				zap.Error(err))
		}
	}
}

// Resync re-mirrors the stored schedule. Used by the background worker.
func (s *OperatingHoursService) Resync(ctx context.Context) error {
	schedule, err := s.GetSchedule(ctx)
	if err != nil {
		return err
	}
	s.Mirror(ctx, schedule)
	return nil
}
