package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Graph maps an add-on base code to its ordered prerequisite base codes.
// Satisfaction is OR across the list, and OR across all country variants of
// each prerequisite. A base code absent from the graph has no prerequisites.
type Graph map[string][]string

// GraphSource loads the dependency graph into the checker. Keeping it an
// interface lets deployments swap the static map for a config file.
type GraphSource interface {
	Load(ctx context.Context) (Graph, error)
}

// memGraphSource is an in-memory GraphSource.
type memGraphSource struct {
	graph Graph
}

// NewMemGraphSource returns a GraphSource over a copy of the given graph.
func NewMemGraphSource(graph Graph) GraphSource {
	clone := make(Graph, len(graph))
	for base, deps := range graph {
		clone[base] = slices.Clone(deps)
	}
	return &memGraphSource{graph: clone}
}

func (s *memGraphSource) Load(ctx context.Context) (Graph, error) {
	clone := make(Graph, len(s.graph))
	for base, deps := range s.graph {
		clone[base] = slices.Clone(deps)
	}
	return clone, nil
}

// yamlGraphSource loads the graph from a YAML file of the form:
//
//	payroll:
//	  - hr-foundation
//	attendance:
//	  - hr-foundation
type yamlGraphSource struct {
	path string
}

// NewYAMLGraphSource returns a GraphSource backed by a YAML file.
func NewYAMLGraphSource(path string) GraphSource {
	return &yamlGraphSource{path: path}
}

func (s *yamlGraphSource) Load(ctx context.Context) (Graph, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var graph Graph
	if err := yaml.Unmarshal(data, &graph); err != nil {
		return nil, err
	}
	return graph, nil
}

// DependencyResult reports whether an add-on's prerequisites hold for a
// tenant. When they do not, Missing names the first configured prerequisite
// with its resolved state so callers can distinguish "never installed" from
// "installed but expired".
type DependencyResult struct {
	Satisfied    bool
	Missing      Code
	MissingState State
}

// Checker resolves OR-satisfied prerequisite modules against the Resolver.
type Checker struct {
	graph    Graph
	resolver *Resolver
	logger   *slog.Logger
}

// NewChecker creates a dependency Checker from a graph source.
// Panics if the resolver is nil; returns ErrFailedToLoadGraph wrapped around
// the source error when the graph cannot be loaded.
func NewChecker(ctx context.Context, src GraphSource, resolver *Resolver, opts ...CheckerOption) (*Checker, error) {
	if resolver == nil {
		panic("entitlement: Resolver is required")
	}
	if src == nil {
		src = NewMemGraphSource(nil)
	}

	graph, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadGraph, err)
	}
	if graph == nil {
		graph = make(Graph)
	}

	c := &Checker{
		graph:    graph,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CheckerOption configures optional Checker settings.
type CheckerOption func(*Checker)

// WithCheckerLogger sets the logger used for configuration warnings.
func WithCheckerLogger(logger *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Prerequisites returns the configured prerequisite base codes for an add-on.
func (c *Checker) Prerequisites(addon Code) []string {
	return slices.Clone(c.graph[addon.Base])
}

// Check evaluates whether the prerequisites of addon hold for the tenant.
// Caller-supplied extras are merged with the static list, de-duplicated and
// order-preserving. An empty merged list is trivially satisfied. Any one
// entitled prerequisite satisfies the whole check; a prerequisite is itself
// satisfied by any entitled country variant of its family.
//
// Dependency success never substitutes for the dependent add-on's own
// entitlement; a failing check only blocks.
func (c *Checker) Check(ctx context.Context, tenantID uuid.UUID, addon Code, extra ...string) (DependencyResult, error) {
	static, configured := c.graph[addon.Base]
	if !configured && len(c.graph) > 0 && len(extra) == 0 {
		// Unknown code in a populated graph: no constraint, but worth a
		// warning since it usually means a missing catalog entry.
		c.logger.WarnContext(ctx, "no dependency mapping for addon, treating as unconstrained",
			slog.String("addon", addon.Base))
	}

	merged := make([]string, 0, len(static)+len(extra))
	for _, dep := range static {
		if !slices.Contains(merged, dep) {
			merged = append(merged, dep)
		}
	}
	for _, dep := range extra {
		if dep != "" && !slices.Contains(merged, dep) {
			merged = append(merged, dep)
		}
	}

	if len(merged) == 0 {
		return DependencyResult{Satisfied: true}, nil
	}

	first := DependencyResult{}
	for i, dep := range merged {
		verdict, err := c.resolver.ResolveFamily(ctx, tenantID, dep)
		if err != nil {
			return DependencyResult{Missing: NewCode(dep), MissingState: verdict.State}, err
		}
		if verdict.Entitled {
			return DependencyResult{Satisfied: true}, nil
		}
		if i == 0 {
			first = DependencyResult{Missing: NewCode(dep), MissingState: verdict.State}
		}
	}
	return first, nil
}
