package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"codegen-pipeline/internal/async"
	"codegen-pipeline/internal/diagnostic"
	"codegen-pipeline/internal/extension"
	"codegen-pipeline/internal/graph"
	"codegen-pipeline/internal/helper"
	"codegen-pipeline/internal/registry"
)

// now is overridden in tests to provide deterministic timings.
var now = time.Now

// Option configures a Pipeline.
type Option func(*config)

type config struct {
	lifecycles []string
	stages     func(*Stages) Stage
	provided   map[helper.Kind][]string
	hooks      Hooks
	logger     *slog.Logger
}

// WithLifecycles sets the ordered lifecycles run between the fragment and
// builder phases. Without it a single DefaultLifecycle runs, and only when
// at least one hook is registered.
func WithLifecycles(names ...string) Option {
	return func(c *config) {
		c.lifecycles = append([]string{}, names...)
	}
}

// WithStages replaces the default stage sequence.
func WithStages(fn func(s *Stages) Stage) Option {
	return func(c *config) {
		c.stages = fn
	}
}

// WithProvidedKeys exempts dependency keys of kind from the missing check.
// The caller guarantees they are satisfied by construction.
func WithProvidedKeys(kind helper.Kind, keys ...string) Option {
	return func(c *config) {
		if c.provided == nil {
			c.provided = make(map[helper.Kind][]string)
		}

		c.provided[kind] = append(c.provided[kind], keys...)
	}
}

// WithHooks registers observer callbacks.
func WithHooks(h Hooks) Option {
	return func(c *config) {
		c.hooks = c.hooks.Merge(h)
	}
}

// WithLogger sets the logger used for debug tracing and as the fallback
// reporter.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// DefaultLifecycle is the lifecycle used when none is configured.
const DefaultLifecycle = extension.DefaultLifecycle

// Pipeline owns helper registries and extension hooks and runs them.
type Pipeline struct {
	factories   Factories
	cfg         config
	diags       *diagnostic.Diagnostics
	registries  *registry.Set
	coordinator *extension.Coordinator

	mu         sync.Mutex
	extensions int
}

// New creates a Pipeline for the given factories.
func New(factories Factories, opts ...Option) (*Pipeline, error) {
	if err := factories.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline factories: %w", err)
	}

	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	diags := diagnostic.New()

	return &Pipeline{
		factories:   factories,
		cfg:         cfg,
		diags:       diags,
		registries:  registry.NewSet(diags),
		coordinator: &extension.Coordinator{},
	}, nil
}

// Use registers h with the registry of its declared kind.
func (p *Pipeline) Use(h helper.Helper) error {
	_, err := p.registries.Register(h)

	return err
}

// KindRegistry registers helpers of one kind.
type KindRegistry struct {
	p    *Pipeline
	kind helper.Kind
}

// Use registers h; h must declare the registry's kind.
func (k KindRegistry) Use(h helper.Helper) error {
	_, err := k.p.registries.Registry(k.kind).Register(h)

	return err
}

// Entries returns the helpers registered for the kind.
func (k KindRegistry) Entries() []helper.Entry {
	return k.p.registries.Registry(k.kind).Entries()
}

// Fragments returns the fragment registry.
func (p *Pipeline) Fragments() KindRegistry {
	return p.Kind(helper.KindFragment)
}

// Builders returns the builder registry.
func (p *Pipeline) Builders() KindRegistry {
	return p.Kind(helper.KindBuilder)
}

// Kind returns the registry of an arbitrary kind.
func (p *Pipeline) Kind(kind helper.Kind) KindRegistry {
	return KindRegistry{p: p, kind: kind}
}

// Extension contributes hooks or helpers to a pipeline.
//
// Register may call back into the pipeline. Its return value decides what
// happens next: an extension.Hook (or plain hook function) is registered for
// DefaultLifecycle, an extension.Registration for its own lifecycle, and any
// other value is handed back to the caller of Extensions().Use.
type Extension struct {
	Key      string
	Register func(p *Pipeline) (any, error)
}

// Extensions registers extensions.
type Extensions struct {
	p *Pipeline
}

// Extensions returns the extension registrar.
func (p *Pipeline) Extensions() Extensions {
	return Extensions{p: p}
}

// Use registers ext.
func (e Extensions) Use(ext Extension) (any, error) {
	if ext.Register == nil {
		return nil, errors.New("extension has no Register function")
	}

	e.p.mu.Lock()
	e.p.extensions++
	key := ext.Key
	if key == "" {
		key = fmt.Sprintf("extension#%d", e.p.extensions)
	}
	e.p.mu.Unlock()

	value, err := ext.Register(e.p)
	if err != nil {
		return nil, fmt.Errorf("registering extension %q: %w", key, err)
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case extension.Hook:
		return nil, e.p.coordinator.Add(extension.HookEntry{Key: key, Hook: v})
	case func(extension.HookOptions) async.Result[*extension.HookResult]:
		return nil, e.p.coordinator.Add(extension.HookEntry{Key: key, Hook: v})
	case extension.Registration:
		return nil, e.p.coordinator.Add(extension.HookEntry{Key: key, Lifecycle: v.Lifecycle, Hook: v.Hook})
	case *extension.Registration:
		if v == nil {
			return nil, nil
		}

		return nil, e.p.coordinator.Add(extension.HookEntry{Key: key, Lifecycle: v.Lifecycle, Hook: v.Hook})
	default:
		return value, nil
	}
}

// Diagnostics returns the findings recorded at registration time.
func (p *Pipeline) Diagnostics() []diagnostic.Diagnostic {
	return p.diags.All()
}

// Plan is the resolved execution order of every kind.
type Plan struct {
	Kinds       []helper.Kind
	Orders      Orders
	Lifecycles  []string
	Diagnostics []diagnostic.Diagnostic
}

// Plan resolves the dependency graph of every kind without running anything.
// Diagnostics are returned even when resolution fails.
func (p *Pipeline) Plan() (*Plan, error) {
	diags := diagnostic.New()
	diags.Merge(p.diags)

	kinds, orders, err := p.resolve(diags)

	return &Plan{
		Kinds:       kinds,
		Orders:      orders,
		Lifecycles:  p.lifecycles(),
		Diagnostics: diags.All(),
	}, err
}

func (p *Pipeline) resolve(diags *diagnostic.Diagnostics) ([]helper.Kind, Orders, error) {
	kinds := p.registries.Kinds()
	snapshot := p.registries.Snapshot()
	orders := make(Orders, len(kinds))

	for _, kind := range kinds {
		provided := slices.Clone(p.cfg.provided[kind])
		if kind == helper.KindBuilder {
			provided = append(provided, helper.Keys(snapshot[helper.KindFragment])...)
		}

		order, err := graph.Resolve(snapshot[kind], graph.Options{
			Kind:         kind,
			ProvidedKeys: provided,
			Diagnostics:  diags,
		})
		if err != nil {
			return kinds, orders, err
		}

		orders[kind] = order
	}

	return kinds, orders, nil
}

func (p *Pipeline) lifecycles() []string {
	if p.cfg.lifecycles != nil {
		return slices.Clone(p.cfg.lifecycles)
	}

	if p.coordinator.Len() > 0 {
		return []string{DefaultLifecycle}
	}

	return nil
}

// Run executes the pipeline once.
//
// Validation errors are returned before any helper runs. Execution errors
// are returned unchanged after everything recorded so far was rolled back.
// The Result is immediate when every participant completed immediately.
func (p *Pipeline) Run(options any) async.Result[any] {
	started := now()
	st := p.newState(options)

	out := p.start(st)
	deferred := out.Deferred()

	return async.Handle(out, func(v any, err error) async.Result[any] {
		p.cfg.hooks.runFinish(RunEvent{
			RunID:    st.RunID,
			Duration: now().Sub(started),
			Steps:    len(st.Steps),
			Deferred: deferred,
			Err:      err,
		})

		if err != nil {
			st.logger.Debug("run failed", "error", err)
		} else {
			st.logger.Debug("run finished", "steps", len(st.Steps), "deferred", deferred)
		}

		return async.From(v, err)
	})
}

func (p *Pipeline) newState(options any) *State {
	runID := uuid.NewString()
	logger := p.cfg.logger.With("run_id", runID)

	return &State{
		RunID:       runID,
		Options:     options,
		Visited:     make(map[helper.Kind]map[string]struct{}),
		Diagnostics: diagnostic.New(),
		Lifecycles:  &extension.Stack{},
		logger:      logger,
		hooks:       p.cfg.hooks,
		factories:   p.factories,
	}
}

func (p *Pipeline) start(st *State) async.Result[any] {
	prepared := async.Try(func() async.Result[*State] {
		return async.From(st, p.prepare(st))
	})

	if err := prepared.Err(); err != nil {
		return async.Error[any](err)
	}

	stages := &Stages{p: p, lifecycles: p.lifecycles()}

	stage := stages.Default()
	if p.cfg.stages != nil {
		stage = p.cfg.stages(stages)
	}

	return async.Then(stage(st), func(st *State) async.Result[any] {
		if st.Halted() {
			return async.Error[any](st.Halt.Err)
		}

		return async.Value(st.Result)
	})
}

func (p *Pipeline) prepare(st *State) error {
	st.Context = p.factories.CreateContext(st.Options)
	if st.Context == nil {
		return errors.New("pipeline: CreateContext returned nil")
	}

	st.BuildOptions = p.factories.buildOptions(st.Options)
	st.Diagnostics.Merge(p.diags)

	before := st.Diagnostics.Len()

	kinds, orders, err := p.resolve(st.Diagnostics)
	st.Kinds, st.Helpers = kinds, orders

	if err != nil {
		for _, d := range st.Diagnostics.All()[before:] {
			st.reporter().Warn(d.String())
		}

		return err
	}

	configured := p.lifecycles()
	for _, name := range p.coordinator.Lifecycles() {
		if !slices.Contains(configured, name) {
			st.reporter().Warn("extension hooks registered for a lifecycle that never runs", "lifecycle", name)
		}
	}

	st.Draft = p.factories.CreateFragmentState(StateInput{
		Options:      st.Options,
		Context:      st.Context,
		BuildOptions: st.BuildOptions,
	})

	return nil
}
