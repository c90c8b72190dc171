package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	topPerformerLimit    = 5
	recentCallsWindow    = 7 * 24 * time.Hour
	recentCallsLimit     = 10
	recentActivitiesSize = 10
)

// Repository is the read-only data access reporting needs.
type Repository interface {
	repository.StatsReader
	ListActivitiesByUser(ctx context.Context, companyID, userID uuid.UUID, limit int) ([]repository.Activity, error)
}

// Service computes windowed aggregates in-process over lead rows.
type Service struct {
	repo     Repository
	users    ports.UserDirectory
	cache    Cache
	log      *logger.Logger
	now      domain.Clock
	loc      *time.Location
	staleAge time.Duration
}

func New(repo Repository, users ports.UserDirectory, cache Cache, log *logger.Logger, loc *time.Location, staleAge time.Duration) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:     repo,
		users:    users,
		cache:    cache,
		log:      log,
		now:      domain.SystemClock,
		loc:      loc,
		staleAge: staleAge,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock domain.Clock) *Service {
	s.now = clock
	return s
}

// StatusCounts buckets leads created inside the window by status.
func (s *Service) StatusCounts(ctx context.Context, companyID uuid.UUID, window domain.Window) (StatusCounts, error) {
	since, bounded := window.Since(s.now(), s.loc)
	key := fmt.Sprintf("status:%s:%d", window, since.Unix())

	var cached StatusCounts
	if s.cacheGet(ctx, companyID, key, &cached) {
		return cached, nil
	}

	var counts StatusCounts
	if !bounded {
		raw, err := s.repo.CountByStatus(ctx, companyID, nil)
		if err != nil {
			return nil, err
		}
		counts = FoldStatusCounts(raw)
	} else {
		leads, err := s.repo.ListForStats(ctx, repository.StatsFilter{CompanyID: companyID, Since: &since})
		if err != nil {
			return nil, err
		}
		counts = CountCreatedSince(leads, since)
	}

	s.cacheSet(ctx, companyID, key, counts)
	return counts, nil
}

// Leaderboard ranks every active salesperson by revenue closed in the period.
func (s *Service) Leaderboard(ctx context.Context, companyID uuid.UUID, period domain.Period) ([]SalespersonStats, error) {
	since, _ := period.Window().Since(s.now(), s.loc)
	key := fmt.Sprintf("leaderboard:%s:%d", period, since.Unix())

	var cached []SalespersonStats
	if s.cacheGet(ctx, companyID, key, &cached) {
		return cached, nil
	}

	var roster []ports.UserInfo
	var leads []repository.Lead
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.users.ListActiveSalespeople(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		leads, err = s.repo.ListForStats(gctx, repository.StatsFilter{CompanyID: companyID, Since: &since})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board := RankByRevenue(Tally(roster, leads, since))
	s.cacheSet(ctx, companyID, key, board)
	return board, nil
}

// TargetRow compares a salesperson's conversions with their goal.
type TargetRow struct {
	UserID      uuid.UUID `json:"userId"`
	Name        string    `json:"name"`
	Target      int       `json:"target"`
	Achieved    int       `json:"achieved"`
	Achievement float64   `json:"achievement"`
}

// AdminDashboard is the company-wide snapshot.
type AdminDashboard struct {
	TotalLeads      int                `json:"totalLeads"`
	LeadsThisMonth  int                `json:"leadsThisMonth"`
	MonthlyRevenue  decimal.Decimal    `json:"monthlyRevenue"`
	ClosedThisMonth int                `json:"closedThisMonth"`
	FollowUpCount   int                `json:"followUpCount"`
	PendingCount    int                `json:"pendingCount"`
	ConversionRate  float64            `json:"conversionRate"`
	LeadsByStatus   StatusCounts       `json:"leadsByStatus"`
	TopPerformers   []SalespersonStats `json:"topPerformers"`
	Targets         []TargetRow        `json:"targets"`
}

// AdminOverview builds the company dashboard for the current month.
func (s *Service) AdminOverview(ctx context.Context, companyID uuid.UUID) (AdminDashboard, error) {
	monthStart, _ := domain.WindowMonthly.Since(s.now(), s.loc)

	var roster []ports.UserInfo
	var raw map[string]int
	var leads []repository.Lead
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.users.ListActiveSalespeople(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		raw, err = s.repo.CountByStatus(gctx, companyID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		leads, err = s.repo.ListForStats(gctx, repository.StatsFilter{CompanyID: companyID, Since: &monthStart})
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminDashboard{}, err
	}

	byStatus := FoldStatusCounts(raw)
	created := CountCreated(leads, monthStart)
	closed, revenue := SumClosedSince(leads, monthStart)

	rows := Tally(roster, leads, monthStart)
	targets := make([]TargetRow, len(rows))
	for i, row := range rows {
		targets[i] = TargetRow{
			UserID:      row.UserID,
			Name:        row.Name,
			Target:      roster[i].MonthlyTarget,
			Achieved:    row.ClosedLeads,
			Achievement: Percent(row.ClosedLeads, roster[i].MonthlyTarget),
		}
	}

	ranked := RankByClosed(rows)
	if len(ranked) > topPerformerLimit {
		ranked = ranked[:topPerformerLimit]
	}

	return AdminDashboard{
		TotalLeads:      byStatus[KeyAll],
		LeadsThisMonth:  created,
		MonthlyRevenue:  revenue,
		ClosedThisMonth: closed,
		FollowUpCount:   byStatus[string(domain.StatusFollowUp)],
		PendingCount:    byStatus[string(domain.StatusFresh)] + byStatus[string(domain.StatusFollowUp)],
		ConversionRate:  Percent(closed, created),
		LeadsByStatus:   byStatus,
		TopPerformers:   ranked,
		Targets:         targets,
	}, nil
}

// PeriodFigures are one period's numbers on the personal dashboard.
type PeriodFigures struct {
	TotalLeads     int             `json:"totalLeads"`
	ClosedLeads    int             `json:"closedLeads"`
	Revenue        decimal.Decimal `json:"revenue"`
	ConversionRate float64         `json:"conversionRate"`
	Target         int             `json:"target"`
	Achievement    float64         `json:"achievement"`
}

// RecentCall is a lead the salesperson called recently.
type RecentCall struct {
	LeadID     uuid.UUID `json:"leadId"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	LastCalled time.Time `json:"lastCalled"`
}

// RecentActivity is an audit entry written by the salesperson.
type RecentActivity struct {
	ID          uuid.UUID `json:"id"`
	LeadID      uuid.UUID `json:"leadId"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SalespersonDashboard is the personal snapshot.
type SalespersonDashboard struct {
	UserID           uuid.UUID        `json:"userId"`
	Name             string           `json:"name"`
	TotalLeads       int              `json:"totalLeads"`
	FollowUpCount    int              `json:"followUpCount"`
	PendingCount     int              `json:"pendingCount"`
	LeadsByStatus    StatusCounts     `json:"leadsByStatus"`
	Weekly           PeriodFigures    `json:"weekly"`
	Monthly          PeriodFigures    `json:"monthly"`
	RecentCalls      []RecentCall     `json:"recentCalls"`
	RecentActivities []RecentActivity `json:"recentActivities"`
}

// SalespersonOverview builds one salesperson's weekly and monthly figures.
// Salespeople may only view their own.
func (s *Service) SalespersonOverview(ctx context.Context, actor domain.Actor, userID uuid.UUID) (SalespersonDashboard, error) {
	if actor.IsSalesperson() && actor.UserID != userID {
		return SalespersonDashboard{}, apperr.Forbidden("you can only view your own dashboard")
	}

	user, err := s.users.GetUser(ctx, actor.CompanyID, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return SalespersonDashboard{}, apperr.NotFound("salesperson not found")
		}
		return SalespersonDashboard{}, err
	}

	now := s.now()
	weekStart, _ := domain.WindowWeekly.Since(now, s.loc)
	monthStart, _ := domain.WindowMonthly.Since(now, s.loc)
	since := monthStart
	if weekStart.Before(since) {
		since = weekStart
	}

	var raw map[string]int
	var leads, calls []repository.Lead
	var activities []repository.Activity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = s.repo.CountByStatus(gctx, actor.CompanyID, &userID)
		return err
	})
	g.Go(func() error {
		var err error
		leads, err = s.repo.ListForStats(gctx, repository.StatsFilter{CompanyID: actor.CompanyID, AssignedTo: &userID, Since: &since})
		return err
	})
	g.Go(func() error {
		var err error
		calls, err = s.repo.ListRecentCalls(gctx, actor.CompanyID, userID, now.Add(-recentCallsWindow), recentCallsLimit)
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.repo.ListActivitiesByUser(gctx, actor.CompanyID, userID, recentActivitiesSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return SalespersonDashboard{}, err
	}

	byStatus := FoldStatusCounts(raw)
	return SalespersonDashboard{
		UserID:           user.ID,
		Name:             user.Name,
		TotalLeads:       byStatus[KeyAll],
		FollowUpCount:    byStatus[string(domain.StatusFollowUp)],
		PendingCount:     byStatus[string(domain.StatusFresh)] + byStatus[string(domain.StatusFollowUp)],
		LeadsByStatus:    byStatus,
		Weekly:           periodFigures(leads, weekStart, user.WeeklyTarget),
		Monthly:          periodFigures(leads, monthStart, user.MonthlyTarget),
		RecentCalls:      toRecentCalls(calls),
		RecentActivities: toRecentActivities(activities),
	}, nil
}

func periodFigures(leads []repository.Lead, since time.Time, target int) PeriodFigures {
	total := CountCreated(leads, since)
	closed, revenue := SumClosedSince(leads, since)
	return PeriodFigures{
		TotalLeads:     total,
		ClosedLeads:    closed,
		Revenue:        revenue,
		ConversionRate: Percent(closed, total),
		Target:         target,
		Achievement:    Percent(closed, target),
	}
}

func toRecentCalls(leads []repository.Lead) []RecentCall {
	out := make([]RecentCall, 0, len(leads))
	for _, lead := range leads {
		if lead.LastCalled == nil {
			continue
		}
		out = append(out, RecentCall{
			LeadID:     lead.ID,
			Name:       lead.Name,
			Phone:      lead.Phone,
			Status:     string(lead.Status),
			LastCalled: *lead.LastCalled,
		})
	}
	return out
}

func toRecentActivities(items []repository.Activity) []RecentActivity {
	out := make([]RecentActivity, len(items))
	for i, a := range items {
		out[i] = RecentActivity{
			ID:          a.ID,
			LeadID:      a.LeadID,
			Type:        string(a.Type),
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		}
	}
	return out
}

// StaleLeads returns fresh or rnr leads whose dwell clock is at least the
// stale age old, oldest first.
func (s *Service) StaleLeads(ctx context.Context, companyID uuid.UUID) ([]repository.Lead, error) {
	cutoff := s.now().Add(-s.staleAge)
	return s.repo.ListStale(ctx, companyID, cutoff)
}

// Invalidate drops cached reports for the company.
func (s *Service) Invalidate(ctx context.Context, companyID uuid.UUID) {
	if err := s.cache.InvalidateCompany(ctx, companyID); err != nil {
		s.log.WithContext(ctx).Warn("report cache invalidation failed", "companyId", companyID, "error", err)
	}
}

func (s *Service) cacheGet(ctx context.Context, companyID uuid.UUID, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, companyID, key, dest)
	if err != nil {
		s.log.WithContext(ctx).Warn("report cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, companyID uuid.UUID, key string, value any) {
	if err := s.cache.Set(ctx, companyID, key, value); err != nil {
		s.log.WithContext(ctx).Warn("report cache write failed", "key", key, "error", err)
	}
}

// SubscribeInvalidation drops a company's cached reports whenever its leads
// or roster change.
func (s *Service) SubscribeInvalidation(bus events.Bus) {
	handler := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if companyID, ok := companyOf(event); ok {
			s.Invalidate(ctx, companyID)
		}
		return nil
	})
	for _, name := range []string{
		events.LeadsImported{}.EventName(),
		events.LeadAssigned{}.EventName(),
		events.LeadStatusChanged{}.EventName(),
		events.UserDeactivated{}.EventName(),
	} {
		bus.Subscribe(name, handler)
	}
}

func companyOf(event events.Event) (uuid.UUID, bool) {
	switch e := event.(type) {
	case events.LeadsImported:
		return e.CompanyID, true
	case events.LeadAssigned:
		return e.CompanyID, true
	case events.LeadStatusChanged:
		return e.CompanyID, true
	case events.UserDeactivated:
		return e.CompanyID, true
	default:
		return uuid.Nil, false
	}
}

// DetectStale publishes StaleLeadsDetected when the company has stale leads
// and returns how many were found.
func (s *Service) DetectStale(ctx context.Context, companyID uuid.UUID, bus events.Bus) (int, error) {
	stale, err := s.StaleLeads(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(stale))
	for i, lead := range stale {
		ids[i] = lead.ID
	}
	bus.Publish(ctx, events.StaleLeadsDetected{
		BaseEvent:   events.NewBaseEvent(),
		CompanyID:   companyID,
		LeadIDs:     ids,
		OldestSince: stale[0].DwellStartedAt,
	})
	return len(stale), nil
}
