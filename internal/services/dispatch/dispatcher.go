package dispatch

import (
	"context"
	"fmt"
	"regexp"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/asakaida/riskmap/internal/services/widgets"
	"go.uber.org/zap"
)

// DefaultSearchPathPattern matches the cross-type object browser page
const DefaultSearchPathPattern = `^/objectBrowser/?$`

// Registrar accepts widget registrations
type Registrar interface {
	Register(ctx context.Context, reg *entities.WidgetRegistration) error
}

// Config describes which subject types select which widget set
type Config struct {
	Module     string
	Primary    entities.TypeName
	Secondary  entities.TypeName
	Aggregator entities.TypeName
	Generic    []entities.TypeName
	SearchPath *regexp.Regexp // Pages listing every object; nil uses DefaultSearchPathPattern
}

// Classify resolves the page kind from the page subject
func Classify(page entities.PageContext, cfg Config) entities.PageKind {
	switch page.SubjectType() {
	case "":
		return entities.PageKindOther
	case cfg.Primary:
		return entities.PageKindPrimary
	case cfg.Secondary:
		return entities.PageKindSecondary
	case cfg.Aggregator:
		return entities.PageKindAggregator
	default:
		return entities.PageKindOther
	}
}

// Prefix returns the relation prefix for central type widgets.
// The object browser lists all objects regardless of subject.
func Prefix(page entities.PageContext, cfg Config) entities.MappingPrefix {
	if searchPath(cfg).MatchString(page.Path) {
		return entities.PrefixAll
	}
	if cfg.Aggregator != "" && page.SubjectType() == cfg.Aggregator {
		return entities.PrefixOwned
	}
	return entities.PrefixRelated
}

var defaultSearchPath = regexp.MustCompile(DefaultSearchPathPattern)

func searchPath(cfg Config) *regexp.Regexp {
	if cfg.SearchPath != nil {
		return cfg.SearchPath
	}
	return defaultSearchPath
}

// Dispatch selects the widgets registered for a page:
//   - primary subject: every generic widget plus the secondary type
//   - secondary subject: every generic widget plus the primary type
//   - aggregator subject: both central types
//   - generic subject: both central types; any other subject: nothing
func Dispatch(page entities.PageContext, cfg Config, set *widgets.DescriptorSet) *entities.WidgetRegistration {
	reg := &entities.WidgetRegistration{
		Module:  cfg.Module,
		Widgets: make(map[entities.TypeName]entities.WidgetSet),
	}

	switch Classify(page, cfg) {
	case entities.PageKindPrimary:
		widgetSet := set.GenericSet()
		widgetSet[cfg.Secondary] = set.Central[cfg.Secondary]
		reg.Widgets[cfg.Primary] = widgetSet

	case entities.PageKindSecondary:
		widgetSet := set.GenericSet()
		widgetSet[cfg.Primary] = set.Central[cfg.Primary]
		reg.Widgets[cfg.Secondary] = widgetSet

	case entities.PageKindAggregator:
		reg.Widgets[cfg.Aggregator] = centralSet(cfg, set)

	default:
		subjectType := page.SubjectType()
		if subjectType != "" && containsType(cfg.Generic, subjectType) {
			reg.Widgets[subjectType] = centralSet(cfg, set)
		}
	}

	return reg
}

func centralSet(cfg Config, set *widgets.DescriptorSet) entities.WidgetSet {
	return entities.WidgetSet{
		cfg.Primary:   set.Central[cfg.Primary],
		cfg.Secondary: set.Central[cfg.Secondary],
	}
}

// Dispatcher builds and registers the widgets of every page load
type Dispatcher struct {
	cfg       Config
	builder   *widgets.Builder
	registrar Registrar
	logger    *zap.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(cfg Config, builder *widgets.Builder, registrar Registrar, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		builder:   builder,
		registrar: registrar,
		logger:    logging.OrNop(logger),
	}
}

// Result is the outcome of one page load
type Result struct {
	Kind         entities.PageKind
	Prefix       entities.MappingPrefix
	Registration *entities.WidgetRegistration
	TreeView     *entities.TreeViewConfig
}

// Run builds the descriptors for a page, selects the widget set and registers it.
// Registrar errors are returned unchanged.
func (d *Dispatcher) Run(ctx context.Context, page entities.PageContext, tree *entities.TreeViewConfig) (*Result, error) {
	if page.Subject != nil && page.Subject.Type == "" {
		return nil, fmt.Errorf("page subject type is required")
	}

	kind := Classify(page, d.cfg)
	prefix := Prefix(page, d.cfg)
	set, extended := d.builder.Build(tree, page, prefix)
	reg := Dispatch(page, d.cfg, set)

	d.logger.Debug("dispatching widgets",
		zap.String("module", d.cfg.Module),
		zap.Stringer("kind", kind),
		zap.String("prefix", string(prefix)),
		zap.String("subject_type", string(page.SubjectType())),
		zap.String("path", page.Path),
	)

	if err := d.registrar.Register(ctx, reg); err != nil {
		return nil, err
	}

	return &Result{
		Kind:         kind,
		Prefix:       prefix,
		Registration: reg,
		TreeView:     extended,
	}, nil
}

func containsType(types []entities.TypeName, t entities.TypeName) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}
