package mcptools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dusk-indust/studyguide/internal/constraint"
	"github.com/dusk-indust/studyguide/internal/course"
	"github.com/dusk-indust/studyguide/internal/graph"
	"github.com/dusk-indust/studyguide/internal/notify"
	"github.com/dusk-indust/studyguide/internal/persistence"
	"github.com/dusk-indust/studyguide/internal/plan"
	"github.com/dusk-indust/studyguide/internal/resolve"
)

// PlannerService holds the session plan, its constraint engine and the
// resolver used by MCP tool handlers. Tool calls are serialized.
type PlannerService struct {
	mu       sync.Mutex
	plan     *plan.Plan
	engine   *constraint.Engine
	resolver *resolve.Resolver
	store    graph.Store
	planPath string
	logger   *zap.Logger

	pending     []notify.Event
	unsubscribe func()
}

// ServiceOption configures a PlannerService.
type ServiceOption func(*PlannerService)

// WithStore mirrors resolved courses into store and enables the graph tools.
func WithStore(store graph.Store) ServiceOption {
	return func(s *PlannerService) { s.store = store }
}

// WithPlanPath sets the default target of save_plan.
func WithPlanPath(path string) ServiceOption {
	return func(s *PlannerService) { s.planPath = path }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *PlannerService) { s.logger = l }
}

// NewPlannerService creates a PlannerService over the engine's plan. The
// resolver must link into the plan's catalog.
func NewPlannerService(engine *constraint.Engine, resolver *resolve.Resolver, opts ...ServiceOption) (*PlannerService, error) {
	if engine == nil || resolver == nil {
		return nil, fmt.Errorf("%w: engine and resolver are required", course.ErrInvalidInput)
	}
	if resolver.Catalog() != engine.Plan().Catalog() {
		return nil, fmt.Errorf("%w: resolver and plan use different catalogs", course.ErrInvalidInput)
	}
	s := &PlannerService{
		plan:     engine.Plan(),
		engine:   engine,
		resolver: resolver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = engine.Subscribe(notify.HandlerFunc(func(e notify.Event) {
		s.pending = append(s.pending, e)
	}))
	return s, nil
}

// Close detaches the service from the engine.
func (s *PlannerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribe()
}

// mutate runs fn and reports the constraint events it caused. Caller holds mu.
func (s *PlannerService) mutate(fn func() error) (MutationOutput, error) {
	s.pending = nil
	err := fn()
	events := s.pending
	s.pending = nil

	out := MutationOutput{Events: make([]EventOutput, 0, len(events)), Valid: s.engine.Valid()}
	for _, e := range events {
		out.Events = append(out.Events, eventOutput(e.Kind, e.Violation))
	}
	return out, err
}

func eventOutput(kind notify.Kind, v plan.Violation) EventOutput {
	return EventOutput{Kind: string(kind), ID: v.ID, Message: notify.Describe(v)}
}

func summarize(c *course.Course) CourseSummary {
	def := c.Definition()
	return CourseSummary{
		Code:          def.Code,
		Name:          def.Name,
		Credits:       def.Credits,
		EnrollableIn:  string(def.EnrollableIn),
		Prerequisites: def.Prerequisites,
		Corequisites:  def.Corequisites,
	}
}

func (s *PlannerService) semester(name string) (*plan.Semester, error) {
	sem, ok := s.plan.Semester(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", plan.ErrUnknownSemester, name)
	}
	return sem, nil
}

func (s *PlannerService) enrollment(semester, code string) (*plan.Semester, *plan.Enrollment, error) {
	sem, err := s.semester(semester)
	if err != nil {
		return nil, nil, err
	}
	e, ok := sem.Enrollment(code)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s in %q", plan.ErrNotEnrolled, code, semester)
	}
	return sem, e, nil
}

// syncGraph mirrors the catalog into the graph store. Failures are logged;
// the catalog stays authoritative.
func (s *PlannerService) syncGraph(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := graph.SaveCatalog(ctx, s.store, s.plan.Catalog()); err != nil {
		s.logger.Warn("graph sync failed", zap.Error(err))
	}
}

// ResolveCourse resolves courses and their dependency closure into the
// session catalog.
func (s *PlannerService) ResolveCourse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResolveCourseInput,
) (*mcp.CallToolResult, ResolveCourseOutput, error) {
	if len(input.Codes) == 0 {
		return nil, ResolveCourseOutput{}, fmt.Errorf("codes is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	courses, err := s.resolver.ResolveAll(ctx, input.Codes)
	out := ResolveCourseOutput{Courses: []CourseSummary{}}
	for i, c := range courses {
		if c == nil {
			out.Failures = append(out.Failures, input.Codes[i])
			continue
		}
		out.Courses = append(out.Courses, summarize(c))
	}
	if err != nil && len(out.Courses) == 0 {
		return nil, ResolveCourseOutput{}, fmt.Errorf("resolve %s: %w", strings.Join(input.Codes, ", "), err)
	}
	if err != nil {
		s.logger.Warn("partial resolution", zap.Strings("failures", out.Failures), zap.Error(err))
	}
	s.syncGraph(ctx)
	return nil, out, nil
}

// GetDependencies traverses the course graph from a resolved course.
func (s *PlannerService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.Code == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("code is required")
	}
	if s.store == nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("no graph store configured")
	}

	direction := graph.DirectionUpstream
	if strings.EqualFold(input.Direction, string(graph.DirectionDownstream)) {
		direction = graph.DirectionDownstream
	}
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	node, err := s.store.GetCourse(ctx, input.Code)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get course: %w", err)
	}
	if node == nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("course %s is not resolved", input.Code)
	}
	chains, err := s.store.GetDependencies(ctx, input.Code, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// AssessImpact reports the resolved courses that depend on the given ones.
func (s *PlannerService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.Codes) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("codes is required")
	}
	if s.store == nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("no graph store configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	impact, err := s.store.AssessImpact(ctx, input.Codes)
	if err != nil {
		return nil, AssessImpactOutput{}, fmt.Errorf("assess impact: %w", err)
	}
	return nil, AssessImpactOutput{Impact: *impact}, nil
}

// AddSemester appends a semester to the plan.
func (s *PlannerService) AddSemester(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input AddSemesterInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.mutate(func() error {
		_, err := s.plan.AddSemester(input.Name)
		return err
	})
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, out, nil
}

// EnrollCourse enrolls a course in a semester, resolving it first if needed.
func (s *PlannerService) EnrollCourse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input EnrollCourseInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sem, err := s.semester(input.Semester)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	c, err := s.resolver.Resolve(ctx, input.Code)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	s.syncGraph(ctx)

	out, err := s.mutate(func() error {
		e, err := sem.Enroll(c)
		if err != nil {
			return err
		}
		e.SetCompleted(input.Completed)
		return nil
	})
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, out, nil
}

// DropCourse removes a course from a semester.
func (s *PlannerService) DropCourse(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DropCourseInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sem, e, err := s.enrollment(input.Semester, input.Code)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	out, err := s.mutate(func() error { return sem.RemoveEnrollment(e) })
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, out, nil
}

// SetCompleted marks an enrollment as passed or not passed.
func (s *PlannerService) SetCompleted(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SetCompletedInput,
) (*mcp.CallToolResult, MutationOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, e, err := s.enrollment(input.Semester, input.Code)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	out, _ := s.mutate(func() error {
		e.SetCompleted(input.Completed)
		return nil
	})
	return nil, out, nil
}

// ValidatePlan reports the plan layout and its active violations.
func (s *PlannerService) ValidatePlan(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ValidatePlanInput,
) (*mcp.CallToolResult, ValidatePlanOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := ValidatePlanOutput{
		Valid:      s.engine.Valid(),
		Credits:    s.plan.Credits(),
		Semesters:  []SemesterOutput{},
		Violations: []EventOutput{},
	}
	for _, sem := range s.plan.Semesters() {
		so := SemesterOutput{Name: sem.Name(), Credits: sem.Credits(), Courses: []string{}}
		for _, e := range sem.Enrollments() {
			so.Courses = append(so.Courses, e.Course().Code())
		}
		out.Semesters = append(out.Semesters, so)
	}
	for _, v := range s.engine.Active() {
		out.Violations = append(out.Violations, eventOutput(notify.KindViolated, v))
	}
	return nil, out, nil
}

// SavePlan writes the plan document.
func (s *PlannerService) SavePlan(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SavePlanInput,
) (*mcp.CallToolResult, SavePlanOutput, error) {
	path := input.Path
	if path == "" {
		path = s.planPath
	}
	if path == "" {
		return nil, SavePlanOutput{}, fmt.Errorf("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := persistence.WriteFile(s.plan, path); err != nil {
		return nil, SavePlanOutput{}, err
	}
	return nil, SavePlanOutput{Path: path}, nil
}
