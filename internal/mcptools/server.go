package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewPlannerMCPServer creates an MCP server with the course planner tools
// registered.
func NewPlannerMCPServer(svc *PlannerService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "studyguide-planner",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_course",
		Description: "Fetch courses from the student information system together with all of their prerequisites and corequisites, and add them to the session catalog.",
	}, svc.ResolveCourse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the course graph upstream (what a course requires) or downstream (what requires it). Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_impact",
		Description: "List the resolved courses that directly or transitively depend on a set of courses, with a risk score for dropping them.",
	}, svc.AssessImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_semester",
		Description: "Append a new empty semester to the study plan. Semester terms alternate starting from the configured first term.",
	}, svc.AddSemester)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "enroll_course",
		Description: "Enroll a course in a semester, resolving it first if needed. Returns the constraint violations that appeared or were fixed.",
	}, svc.EnrollCourse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "drop_course",
		Description: "Remove a course from a semester. Returns the constraint violations that appeared or were fixed.",
	}, svc.DropCourse)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_completed",
		Description: "Mark an enrolled course as passed or not passed.",
	}, svc.SetCompleted)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_plan",
		Description: "Return the semesters of the plan with their credits and every currently active constraint violation.",
	}, svc.ValidatePlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_plan",
		Description: "Write the plan, its constraints and the course registry to a JSON or YAML file.",
	}, svc.SavePlan)

	return server
}

// RunMCPServerStdio runs the planner MCP server on stdio transport, blocking
// until the client disconnects or ctx is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *PlannerService) error {
	return NewPlannerMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}

// RunMCPServer starts an HTTP server exposing the planner MCP tools.
func RunMCPServer(ctx context.Context, svc *PlannerService, addr string) error {
	server := NewPlannerMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
