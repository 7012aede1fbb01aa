package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/asakaida/riskmap/internal/services"
	"github.com/asakaida/riskmap/internal/services/catalog"
	"github.com/asakaida/riskmap/internal/services/dispatch"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// WidgetInitializer builds and registers the widgets of a page load
type WidgetInitializer interface {
	InitWidgets(ctx context.Context, page entities.PageContext, tree *entities.TreeViewConfig, registrar dispatch.Registrar) (*dispatch.Result, error)
}

// DispatchRecorder observes completed widget dispatches
type DispatchRecorder interface {
	RecordDispatch(kind string)
}

// RiskMapHandler handles RiskMap service gRPC requests
type RiskMapHandler struct {
	catalogService services.CatalogServiceInterface
	widgets        WidgetInitializer
	registrar      dispatch.Registrar
	tree           *entities.TreeViewConfig
	recorder       DispatchRecorder
	logger         *zap.Logger
}

// RiskMapHandlerOptions holds the dependencies of a RiskMapHandler
type RiskMapHandlerOptions struct {
	CatalogService services.CatalogServiceInterface
	Widgets        WidgetInitializer
	Registrar      dispatch.Registrar
	TreeView       *entities.TreeViewConfig // Tree view every page load starts from
	Recorder       DispatchRecorder         // Optional
	Logger         *zap.Logger
}

// NewRiskMapHandler creates a new RiskMapHandler
func NewRiskMapHandler(opts RiskMapHandlerOptions) *RiskMapHandler {
	logger := logging.OrNop(opts.Logger)
	return &RiskMapHandler{
		catalogService: opts.CatalogService,
		widgets:        opts.Widgets,
		registrar:      opts.Registrar,
		tree:           opts.TreeView,
		recorder:       opts.Recorder,
		logger:         logger,
	}
}

var _ RiskMapServer = (*RiskMapHandler)(nil)

// WriteCatalog handles the WriteCatalog RPC
func (h *RiskMapHandler) WriteCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	module, err := requiredString(req, "module")
	if err != nil {
		return nil, err
	}
	dsl, err := requiredString(req, "dsl")
	if err != nil {
		return nil, err
	}

	version, err := h.catalogService.WriteCatalog(ctx, module, dsl)
	if err != nil {
		return nil, toStatus("failed to write catalog", err)
	}

	return newResponse(map[string]interface{}{"version": version})
}

// ReadCatalog handles the ReadCatalog RPC; an empty version reads the latest one
func (h *RiskMapHandler) ReadCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	module, err := requiredString(req, "module")
	if err != nil {
		return nil, err
	}

	stored, err := h.catalogService.ReadCatalog(ctx, module, stringField(req, "version"))
	if err != nil {
		return nil, toStatus("failed to read catalog", err)
	}

	return newResponse(StoredCatalogToMap(stored))
}

// ListCatalogVersions handles the ListCatalogVersions RPC
func (h *RiskMapHandler) ListCatalogVersions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	module, err := requiredString(req, "module")
	if err != nil {
		return nil, err
	}
	limit := intField(req, "limit")
	if limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}

	versions, err := h.catalogService.ListVersions(ctx, module, limit)
	if err != nil {
		return nil, toStatus("failed to list catalog versions", err)
	}

	return newResponse(map[string]interface{}{
		"module":   module,
		"versions": VersionsToList(versions),
	})
}

// ValidateCatalog handles the ValidateCatalog RPC.
// Invalid DSL is reported in the response, not as an RPC error.
func (h *RiskMapHandler) ValidateCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dsl, err := requiredString(req, "dsl")
	if err != nil {
		return nil, err
	}

	err = h.catalogService.ValidateCatalog(ctx, stringField(req, "module"), dsl)
	switch {
	case err == nil:
		return newResponse(map[string]interface{}{"valid": true})
	case errors.Is(err, entities.ErrInvalidCatalog):
		return newResponse(map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
	default:
		return nil, toStatus("failed to validate catalog", err)
	}
}

// DeleteCatalog handles the DeleteCatalog RPC
func (h *RiskMapHandler) DeleteCatalog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	module, err := requiredString(req, "module")
	if err != nil {
		return nil, err
	}

	if err := h.catalogService.DeleteCatalog(ctx, module); err != nil {
		return nil, toStatus("failed to delete catalog", err)
	}

	return newResponse(map[string]interface{}{})
}

// ListRelations handles the ListRelations RPC
func (h *RiskMapHandler) ListRelations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	typeName, err := requiredString(req, "type")
	if err != nil {
		return nil, err
	}

	registry, err := h.registry(ctx)
	if err != nil {
		return nil, err
	}

	relations := registry.Relations(entities.TypeName(typeName))
	if len(relations) == 0 {
		return nil, status.Errorf(codes.NotFound, "%v: %s", entities.ErrTypeNotFound, typeName)
	}

	return newResponse(map[string]interface{}{
		"type":      typeName,
		"relations": stringList(relations),
	})
}

// ExpandRelation handles the ExpandRelation RPC
func (h *RiskMapHandler) ExpandRelation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	typeName, err := requiredString(req, "type")
	if err != nil {
		return nil, err
	}
	relation, err := requiredString(req, "relation")
	if err != nil {
		return nil, err
	}

	registry, err := h.registry(ctx)
	if err != nil {
		return nil, err
	}

	expander := catalog.NewExpander(registry)
	t := entities.TypeName(typeName)

	tree, err := expander.Expand(t, relation)
	if err != nil {
		return nil, toStatus("expand failed", err)
	}
	targets, bounded, err := expander.Targets(t, relation)
	if err != nil {
		return nil, toStatus("expand failed", err)
	}

	return newResponse(map[string]interface{}{
		"tree":      ExpandNodeToMap(tree),
		"targets":   typeList(targets),
		"bounded":   bounded,
		"canonical": typeList(registry.Canonical(t, relation)),
	})
}

// InitWidgets handles the InitWidgets RPC.
// The request carries the page path and, optionally, the page subject.
func (h *RiskMapHandler) InitWidgets(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page := entities.PageContext{Path: stringField(req, "path")}

	subjectType := stringField(req, "subject_type")
	subjectID := stringField(req, "subject_id")
	if subjectType != "" {
		page.Subject = &entities.Subject{Type: entities.TypeName(subjectType), ID: subjectID}
	} else if subjectID != "" {
		return nil, status.Error(codes.InvalidArgument, "subject_type is required when subject_id is set")
	}

	result, err := h.widgets.InitWidgets(ctx, page, h.tree, h.registrar)
	if err != nil {
		return nil, toStatus("failed to init widgets", err)
	}

	if h.recorder != nil {
		h.recorder.RecordDispatch(result.Kind.String())
	}

	return newResponse(ResultToMap(result))
}

func (h *RiskMapHandler) registry(ctx context.Context) (*catalog.Registry, error) {
	registry, err := h.catalogService.Registry(ctx)
	if err != nil {
		h.logger.Error("failed to build relation registry", zap.Error(err))
		return nil, status.Errorf(codes.FailedPrecondition, "relation registry unavailable: %v", err)
	}
	return registry, nil
}

// === Shared helpers ===

func newResponse(m map[string]interface{}) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return resp, nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func intField(req *structpb.Struct, name string) int {
	return int(req.GetFields()[name].GetNumberValue())
}

func requiredString(req *structpb.Struct, name string) (string, error) {
	value := stringField(req, name)
	if value == "" {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("%s is required", name))
	}
	return value, nil
}

// toStatus maps service errors to gRPC status codes
func toStatus(msg string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, entities.ErrCatalogNotFound),
		errors.Is(err, entities.ErrTypeNotFound),
		errors.Is(err, entities.ErrRelationNotFound):
		code = codes.NotFound
	case errors.Is(err, entities.ErrInvalidCatalog),
		errors.Is(err, entities.ErrUnknownMixin):
		code = codes.InvalidArgument
	case errors.Is(err, entities.ErrCatalogInUse):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Errorf(code, "%s: %v", msg, err)
}
