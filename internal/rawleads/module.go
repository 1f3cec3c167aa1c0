// Package rawleads provides the telecalling pipeline bounded context: bulk
// phone ingestion, assignment to telecallers, outcome tracking with one-shot
// conversion into cold CRM leads, and outcome statistics.
package rawleads

import (
	"context"

	"telecall_backend/internal/events"
	apphttp "telecall_backend/internal/http"
	"telecall_backend/internal/rawleads/handler"
	"telecall_backend/internal/rawleads/ports"
	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/service"
	"telecall_backend/platform/config"
	"telecall_backend/platform/logger"
	"telecall_backend/platform/metrics"
	"telecall_backend/platform/validator"
)

// Module is the raw leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewModule creates and initializes the raw leads module with all its dependencies.
func NewModule(db repository.DB, users ports.UserDirectory, bus events.Bus, val *validator.Validator, cfg config.RawLeadConfig, m *metrics.Metrics, log *logger.Logger) *Module {
	return newModule(repository.New(db), users, bus, val, cfg, m, log)
}

func newModule(repo repository.Repository, users ports.UserDirectory, bus events.Bus, val *validator.Validator, cfg config.RawLeadConfig, m *metrics.Metrics, log *logger.Logger) *Module {
	svc := service.New(repo, users, bus, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
		metrics: m,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "rawleads"
}

// Service returns the service layer for the import command.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts raw lead routes on the provided router context.
// Privilege checks happen per handler since agents share most paths.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/raw-leads")

	ingest := group.Group("")
	if ctx.IngestRateLimiter != nil {
		ingest.Use(ctx.IngestRateLimiter.RateLimit())
	}
	ingest.POST("/bulk", m.handler.BulkIngest)
	ingest.POST("/import", m.handler.Import)

	group.POST("", m.handler.Create)
	group.POST("/assign", m.handler.AssignBulk)
	group.POST("/bulk-delete", m.handler.BulkDelete)
	group.GET("", m.handler.List)
	group.GET("/batches", m.handler.ListBatches)
	group.GET("/stats", m.handler.Stats)
	group.GET("/:id", m.handler.GetByID)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
}

// RegisterHandlers subscribes the pipeline counters to raw lead events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	if m.metrics == nil {
		return
	}
	bus.Subscribe(events.RawLeadsIngested{}.EventName(), m)
	bus.Subscribe(events.RawLeadsAssigned{}.EventName(), m)
	bus.Subscribe(events.RawLeadConverted{}.EventName(), m)
	bus.Subscribe(events.RawLeadConversionContended{}.EventName(), m)
	bus.Subscribe(events.RawLeadsRemoved{}.EventName(), m)
}

// Handle routes events to the matching counter.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.RawLeadsIngested:
		m.metrics.RecordIngestion(e.Inserted, e.DuplicatesSkipped)
	case events.RawLeadsAssigned:
		m.metrics.RecordAssignment(e.Updated)
	case events.RawLeadConverted:
		m.metrics.RecordConversion()
	case events.RawLeadConversionContended:
		m.metrics.RecordConversionRaceLost()
	case events.RawLeadsRemoved:
		m.metrics.RecordRemoval(e.Deleted)
	default:
		m.log.Warn("unhandled event", "event", event.EventName())
	}
	return nil
}
