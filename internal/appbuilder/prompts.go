package appbuilder

import (
	"fmt"
	"sort"
	"strings"
)

func scaffoldPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Scaffold the project skeleton for this application.

%s
Create the directory structure and base configuration files:
%s

Create package manifests, lockfile placeholders and tooling config
appropriate for the stack. Do not implement features yet.`,
		spec.summary(), strings.Join(spec.DirectoryStructure, "\n"))
}

func backendPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Implement the backend for this application.

%s
API contracts to implement:
%s

Data models:
%s

Environment variables: %s

Implement every endpoint with input validation and structured errors, and
wire the data models through %s against %s.`,
		spec.summary(),
		strings.Join(spec.APIContracts, "\n"),
		strings.Join(spec.DataModels, "\n"),
		renderEnvVars(spec.EnvVars),
		orNone(spec.TechStack.ORM), orNone(spec.TechStack.Database))
}

func frontendPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Implement the frontend for this application.

%s
Component tree:
%s

Build each component with %s styling, wire API calls to the backend
contracts, and cover loading and error states.`,
		spec.summary(), strings.Join(spec.ComponentTree, "\n"), orNone(spec.TechStack.Styling))
}

func testsPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Write the test suite for this application.

%s
Cover the API contracts, the core feature flows and at least one failure
path per endpoint. Use the testing tools conventional for the stack.`,
		spec.summary())
}

func securityPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Audit and harden this application.

%s
Auth scheme: %s. Check input validation, authentication on every mutating
endpoint, secret handling via environment variables, and dependency
hygiene. Fix what you find.`,
		spec.summary(), orNone(spec.TechStack.Auth))
}

func devopsPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Prepare this application for deployment via %s.

%s
Write the container/deployment configuration and a CI pipeline that runs
the test suite on every push.`,
		orNone(spec.TechStack.Deployment), spec.summary())
}

func docsPrompt(spec *ArchitectureSpec) string {
	return fmt.Sprintf(`Write the documentation for this application.

%s
Produce a README covering setup, configuration (%s), development workflow
and deployment.`,
		spec.summary(), renderEnvVars(spec.EnvVars))
}

func renderEnvVars(envVars map[string]string) string {
	if len(envVars) == 0 {
		return "none"
	}
	names := make([]string, 0, len(envVars))
	for name := range envVars {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%s)", name, envVars[name]))
	}
	return strings.Join(parts, ", ")
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}
