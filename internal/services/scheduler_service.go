package services

import (
	"context"
	"time"

	"flowdesk/internal/automation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SchedulerService emits the time- and load-driven events that have no
// direct user action behind them: deadline warnings and workload threshold
// breaches. Run drives both checks on a fixed interval.
type SchedulerService struct {
	db           *gorm.DB
	logger       *logrus.Logger
	deadlines    *DeadlineService
	assignments  *AssignmentService
	orchestrator *automation.Orchestrator
	recorder     OutcomeRecorder

	// open items per role above which a workload_threshold event fires
	workloadLimit int
}

func NewSchedulerService(db *gorm.DB, logger *logrus.Logger, deadlines *DeadlineService, assignments *AssignmentService, orchestrator *automation.Orchestrator, recorder OutcomeRecorder, workloadLimit int) *SchedulerService {
	if logger == nil {
		logger = logrus.New()
	}
	if workloadLimit <= 0 {
		workloadLimit = 10
	}
	return &SchedulerService{
		db:            db,
		logger:        logger,
		deadlines:     deadlines,
		assignments:   assignments,
		orchestrator:  orchestrator,
		recorder:      recorder,
		workloadLimit: workloadLimit,
	}
}

// Run loops until ctx is cancelled, scanning on each tick.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Infof("scheduler running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.ScanDeadlines(ctx, time.Now().UTC())
			s.ScanWorkload(ctx)
		}
	}
}

// ScanDeadlines emits deadline_approaching for every deadline past its
// warning threshold, marking each warned so it fires once.
func (s *SchedulerService) ScanDeadlines(ctx context.Context, now time.Time) {
	due, err := s.deadlines.DueForWarning(ctx, now)
	if err != nil {
		s.logger.Warnf("scan deadlines: %v", err)
		return
	}
	for _, d := range due {
		daysLeft := int(time.Until(d.DueAt).Hours() / 24)
		if daysLeft < 0 {
			daysLeft = 0
		}
		s.emit(ctx, automation.NewEvent(automation.DeadlineApproaching, automation.Payload{
			"entity.type":       automation.String(d.EntityType),
			"entity.id":         automation.String(formatID(d.EntityID)),
			"deadline.dueAt":    automation.Time(d.DueAt),
			"deadline.daysLeft": automation.Number(float64(daysLeft)),
		}))
		if err := s.deadlines.MarkWarned(ctx, d.ID); err != nil {
			s.logger.Warnf("mark deadline %d warned: %v", d.ID, err)
		}
	}
}

// ScanWorkload emits workload_threshold for each role whose busiest user
// carries more open items than the configured limit.
func (s *SchedulerService) ScanWorkload(ctx context.Context) {
	var roles []string
	if err := s.db.WithContext(ctx).Table("users").
		Where("status = ?", "active").
		Distinct().
		Pluck("role", &roles).Error; err != nil {
		s.logger.Warnf("scan workload roles: %v", err)
		return
	}
	for _, role := range roles {
		counts, err := s.assignments.OpenItemCountsByRole(ctx, role)
		if err != nil {
			s.logger.Warnf("scan workload for role %s: %v", role, err)
			continue
		}
		for userID, open := range counts {
			if open <= s.workloadLimit {
				continue
			}
			s.emit(ctx, automation.NewEvent(automation.WorkloadThreshold, automation.Payload{
				"entity.type":        automation.String("user"),
				"entity.id":          automation.String(userID),
				"workload.role":      automation.String(role),
				"workload.openItems": automation.Number(float64(open)),
			}))
		}
	}
}

func (s *SchedulerService) emit(ctx context.Context, event automation.Event) {
	if s.orchestrator == nil {
		return
	}
	outcome := s.orchestrator.ProcessEvent(ctx, event)
	if s.recorder != nil {
		s.recorder.RecordOutcome(ctx, outcome)
	}
}
