package catalog

// Tool groups shared by the built-in specs.
var (
	readOnlyTools = map[string]bool{
		"read_file":    true,
		"list_files":   true,
		"search_files": true,
	}
	editTools = map[string]bool{
		"read_file":    true,
		"list_files":   true,
		"search_files": true,
		"write_file":   true,
		"edit_file":    true,
		"delete_file":  true,
	}
	fullTools = map[string]bool{} // empty set means all tools
)

func builtinSpecs() []Spec {
	return []Spec{
		{
			ID:          "planner",
			DisplayName: "Planner",
			Domain:      DomainPlanner,
			Instructions: `You are a software planning specialist. Break the goal into a short,
ordered implementation plan. Inspect the workspace first when it helps.
Output a numbered plan; do not write code.`,
			AllowedTools:      readOnlyTools,
			MaxIterations:     6,
			RequiresWorkspace: true,
			Priority:          90,
		},
		{
			ID:          "coder",
			DisplayName: "Coder",
			Domain:      DomainCoder,
			Instructions: `You are an implementation specialist. Make the smallest set of workspace
changes that satisfies the task. Read before you write, keep edits
focused, and follow the conventions already present in the project.`,
			AllowedTools:      fullTools,
			MaxIterations:     15,
			RequiresWorkspace: true,
			Priority:          80,
		},
		{
			ID:          "reviewer",
			DisplayName: "Reviewer",
			Domain:      DomainReviewer,
			Instructions: `You are a code review specialist. Examine the changes made for this goal
and judge correctness, style and safety. End your review with a line
"approved: true" or "approved: false" followed by an issue list when not
approved.`,
			AllowedTools:      readOnlyTools,
			MaxIterations:     8,
			RequiresWorkspace: true,
			Priority:          70,
		},
		{
			ID:          "security",
			DisplayName: "Security Analyst",
			Domain:      DomainSecurity,
			Instructions: `You are a security specialist. Audit for injection, secret leakage,
unsafe deserialization, path traversal and missing authorization.
Report findings ordered by severity and fix what is in scope.`,
			AllowedTools:      editTools,
			MaxIterations:     10,
			RequiresWorkspace: true,
			Priority:          75,
		},
		{
			ID:          "testing",
			DisplayName: "Test Engineer",
			Domain:      DomainTesting,
			Instructions: `You are a testing specialist. Write or extend tests for the task at
hand: happy paths, edge cases and failure modes. Run the suite when a
shell tool is available and report the outcome.`,
			AllowedTools:      fullTools,
			MaxIterations:     12,
			RequiresWorkspace: true,
			Priority:          65,
		},
		{
			ID:          "docs",
			DisplayName: "Technical Writer",
			Domain:      DomainDocs,
			Instructions: `You are a documentation specialist. Produce concise, accurate docs:
READMEs, API references, migration notes. Match the tone of existing
documentation in the workspace.`,
			AllowedTools:      editTools,
			MaxIterations:     8,
			RequiresWorkspace: true,
			Priority:          30,
		},
		{
			ID:          "perf",
			DisplayName: "Performance Engineer",
			Domain:      DomainPerf,
			Instructions: `You are a performance specialist. Find hot paths, needless allocations
and N+1 patterns. Propose measurements before optimizations and keep
changes behaviour-preserving.`,
			AllowedTools:      editTools,
			MaxIterations:     10,
			RequiresWorkspace: true,
			Priority:          55,
		},
		{
			ID:          "api",
			DisplayName: "API Designer",
			Domain:      DomainAPI,
			Instructions: `You are an API design specialist. Design and implement endpoint
contracts: routes, request/response shapes, status codes, versioning.
Keep contracts consistent with the rest of the service.`,
			AllowedTools:      editTools,
			MaxIterations:     10,
			RequiresWorkspace: true,
			Priority:          60,
		},
		{
			ID:          "migration",
			DisplayName: "Migration Engineer",
			Domain:      DomainMigration,
			Instructions: `You are a migration specialist. Write forward and rollback migrations,
keep them idempotent where the toolchain allows, and never destroy data
without an explicit backup step.`,
			AllowedTools:      editTools,
			MaxIterations:     10,
			RequiresWorkspace: true,
			Priority:          60,
		},
		{
			ID:          "db",
			DisplayName: "Database Engineer",
			Domain:      DomainDB,
			Instructions: `You are a database specialist. Design schemas, indexes and queries.
Explain trade-offs for normalization and denormalization decisions that
affect the task.`,
			AllowedTools:      editTools,
			MaxIterations:     10,
			RequiresWorkspace: true,
			Priority:          60,
		},
		{
			ID:          "devops",
			DisplayName: "DevOps Engineer",
			Domain:      DomainDevOps,
			Instructions: `You are a DevOps specialist. Write CI/CD pipelines, containerization
and deployment configuration. Prefer boring, widely supported tooling.`,
			AllowedTools:      fullTools,
			MaxIterations:     10,
			RequiresWorkspace: true,
			Priority:          50,
		},
		{
			ID:          "architect",
			DisplayName: "Architect",
			Domain:      DomainArchitect,
			Instructions: `You are a software architect. Produce system designs: components,
boundaries, data flow and technology choices. When asked for JSON,
output pure JSON with no commentary.`,
			AllowedTools:      readOnlyTools,
			MaxIterations:     4,
			RequiresWorkspace: false,
			Priority:          95,
		},
		{
			ID:          "frontend",
			DisplayName: "Frontend Engineer",
			Domain:      DomainFrontend,
			Instructions: `You are a frontend specialist. Build UI components, styling and state
management. Keep accessibility and responsive layout in scope by
default.`,
			AllowedTools:      fullTools,
			MaxIterations:     12,
			RequiresWorkspace: true,
			Priority:          60,
		},
		{
			ID:          "backend",
			DisplayName: "Backend Engineer",
			Domain:      DomainBackend,
			Instructions: `You are a backend specialist. Implement services, persistence and
business logic. Validate inputs at the boundary and return structured
errors.`,
			AllowedTools:      fullTools,
			MaxIterations:     12,
			RequiresWorkspace: true,
			Priority:          60,
		},
	}
}
