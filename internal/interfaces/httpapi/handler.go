package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/domain/model"
	"github.com/Victor-armando18/pedimento-rules/internal/interfaces"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
	"github.com/Victor-armando18/pedimento-rules/internal/usecase/sequence"
)

// PatchRequest carries a declaration and the RFC 6902 operations to apply to it.
type PatchRequest struct {
	Declaration model.Declaration `json:"declaration"`
	Patch       json.RawMessage   `json:"patch"`
}

// AllocateRequest asks for the next consecutive. Either Year or Date must be set.
type AllocateRequest struct {
	Year    string    `json:"year,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	Office  string    `json:"office"`
	License string    `json:"license"`
	Note    string    `json:"note,omitempty"`
}

type Handler struct {
	svc   interfaces.EngineFacade
	alloc interfaces.SequenceAllocator
	log   *logger.Logger
}

// NewHandler builds the HTTP handlers. alloc may be nil, in which case the
// sequence routes are not registered.
func NewHandler(svc interfaces.EngineFacade, alloc interfaces.SequenceAllocator, baseLog *logger.Logger) *Handler {
	return &Handler{svc: svc, alloc: alloc, log: baseLog.With("component", "httpapi")}
}

func (h *Handler) Register(e *echo.Echo) {
	d := e.Group("/declarations")
	d.POST("/plan", h.plan)
	d.POST("/validate", h.validate)
	d.POST("/simulate", h.simulate)
	d.POST("/prepare", h.prepare)
	d.POST("/explain", h.explain)
	d.POST("/stages/:stage/check", h.checkStage)
	d.POST("/stages/:stage/allowed-codes", h.allowedCodes)
	d.PATCH("", h.patch)
	d.GET("/:id/trace", h.trace)

	e.GET("/rulepacks", h.rulepacks)

	if h.alloc != nil {
		e.POST("/sequences/allocate", h.allocate)
	}
}

func bindDeclaration(c echo.Context) (*model.Declaration, error) {
	var decl model.Declaration
	if err := c.Bind(&decl); err != nil {
		return nil, fmt.Errorf("%w: invalid declaration payload", domain.ErrInvalidArgument)
	}
	return &decl, nil
}

func (h *Handler) plan(c echo.Context) error {
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	plan, err := h.svc.Plan(c.Request().Context(), decl)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) validate(c echo.Context) error {
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	report, err := h.svc.Validate(c.Request().Context(), decl)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true, "warnings": report.Warnings})
}

func (h *Handler) simulate(c echo.Context) error {
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	sim, err := h.svc.Simulate(c.Request().Context(), decl)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, sim)
}

func (h *Handler) prepare(c echo.Context) error {
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	out, err := h.svc.Prepare(c.Request().Context(), decl)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) explain(c echo.Context) error {
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	doc, err := h.svc.Explain(c.Request().Context(), decl)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) checkStage(c echo.Context) error {
	stage := domain.Stage(c.Param("stage"))
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.svc.CheckStage(c.Request().Context(), decl, stage); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"stage": stage, "ok": true})
}

func (h *Handler) allowedCodes(c echo.Context) error {
	stage := domain.Stage(c.Param("stage"))
	decl, err := bindDeclaration(c)
	if err != nil {
		return h.respondError(c, err)
	}
	codes, err := h.svc.AllowedCodes(c.Request().Context(), decl, stage)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, codes)
}

func (h *Handler) patch(c echo.Context) error {
	var req PatchRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, fmt.Errorf("%w: invalid patch request", domain.ErrInvalidArgument))
	}
	if len(req.Patch) == 0 {
		return h.respondError(c, fmt.Errorf("%w: patch is required", domain.ErrInvalidArgument))
	}
	res, err := h.svc.Patch(c.Request().Context(), req.Declaration, req.Patch)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// trace returns the stored document as-is.
func (h *Handler) trace(c echo.Context) error {
	rec, err := h.svc.Trace(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="trace-%s.json"`, sanitizeFilename(rec.DeclarationID)))
	return c.JSONBlob(http.StatusOK, rec.Document)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, s)
}

func (h *Handler) rulepacks(c echo.Context) error {
	packs, err := h.svc.Rulepacks(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, packs)
}

func (h *Handler) allocate(c echo.Context) error {
	var req AllocateRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, fmt.Errorf("%w: invalid allocation request", domain.ErrInvalidArgument))
	}
	key := domain.SequenceKey{Year: req.Year, Office: req.Office, License: req.License}
	if req.Year == "" && !req.Date.IsZero() {
		var err error
		if key, err = sequence.KeyFor(req.Date, req.Office, req.License); err != nil {
			return h.respondError(c, err)
		}
	}
	alloc, err := h.alloc.Allocate(c.Request().Context(), key, req.Note)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, alloc)
}
