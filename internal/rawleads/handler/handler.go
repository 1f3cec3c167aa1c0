package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"telecall_backend/internal/rawleads/service"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/httpkit"
	"telecall_backend/platform/validator"
)

// Handler handles HTTP requests for raw leads.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid raw lead ID"
	msgForbidden        = "forbidden"
	maxImportBytes      = 10 << 20
)

// New creates a new raw leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// scopeFor narrows agents to the records assigned to them.
func scopeFor(identity httpkit.Identity) service.Scope {
	if identity.IsPrivileged() {
		return service.Scope{}
	}
	return service.OwnedBy(identity.UserID())
}

// mustBePrivileged aborts with 403 unless the caller is an admin or manager.
func mustBePrivileged(c *gin.Context) bool {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return false
	}
	if !identity.IsPrivileged() {
		httpkit.Error(c, http.StatusForbidden, msgForbidden, nil)
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// Create enters one raw lead by hand.
// POST /api/v1/raw-leads
func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.CreateRawLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	// agents may only create records for themselves
	if !identity.IsPrivileged() {
		self := identity.UserID()
		req.AssigneeID = &self
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// BulkIngest feeds many contacts at once.
// POST /api/v1/raw-leads/bulk
func (h *Handler) BulkIngest(c *gin.Context) {
	if !mustBePrivileged(c) {
		return
	}
	var req transport.BulkIngestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.BulkIngest(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Import ingests a CSV upload.
// POST /api/v1/raw-leads/import (multipart: file, batchName, source, defaultAssigneeId)
func (h *Handler) Import(c *gin.Context) {
	if !mustBePrivileged(c) {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var opts transport.ImportOptions
	if err := c.ShouldBind(&opts); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(opts); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if raw := strings.TrimSpace(c.PostForm("defaultAssigneeId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "defaultAssigneeId must be a uuid")
			return
		}
		opts.DefaultAssigneeID = &id
	}

	header, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	file, err := header.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	result, err := h.svc.ImportCSV(c.Request.Context(), file, opts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AssignBulk hands raw leads to one telecaller.
// POST /api/v1/raw-leads/assign
func (h *Handler) AssignBulk(c *gin.Context) {
	if !mustBePrivileged(c) {
		return
	}
	var req transport.AssignBulkRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.AssignBulk(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List returns raw leads. Agents only ever see their own.
// GET /api/v1/raw-leads
func (h *Handler) List(c *gin.Context) {
	var req transport.ListRawLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req, scopeFor(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListBatches summarizes import batches.
// GET /api/v1/raw-leads/batches
func (h *Handler) ListBatches(c *gin.Context) {
	if !mustBePrivileged(c) {
		return
	}

	result, err := h.svc.ListBatches(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Stats reports workload and outcomes, narrowed to the caller for agents.
// GET /api/v1/raw-leads/stats?from=&to=
func (h *Handler) Stats(c *gin.Context) {
	var req transport.StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	from, to, err := transport.ParseDateRange(req.From, req.To)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetStats(c.Request.Context(), service.StatsQuery{From: from, To: to}, scopeFor(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID returns one raw lead with its assignee.
// GET /api/v1/raw-leads/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id, scopeFor(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update records a call outcome.
// PATCH /api/v1/raw-leads/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateRawLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	actorID := identity.UserID()
	result, err := h.svc.Update(c.Request.Context(), id, req, &actorID, scopeFor(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes one raw lead.
// DELETE /api/v1/raw-leads/:id
func (h *Handler) Delete(c *gin.Context) {
	if !mustBePrivileged(c) {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Remove(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// BulkDelete removes many raw leads.
// POST /api/v1/raw-leads/bulk-delete
func (h *Handler) BulkDelete(c *gin.Context) {
	if !mustBePrivileged(c) {
		return
	}
	var req transport.RemoveBulkRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.svc.RemoveBulk(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
