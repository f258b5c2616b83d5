package curriculum

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/psyhead/clinic/internal/platform/auth"
	"github.com/psyhead/clinic/internal/platform/authz"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/curriculum")

	g.GET("/programs", h.ListPrograms)
	g.POST("/programs", h.CreateProgram)
	g.PUT("/programs/:id", h.UpdateProgram)
	g.DELETE("/programs/:id", h.DeleteProgram, auth.RequireRole(authz.RoleAdmin, authz.RoleTherapist))

	g.GET("/targets", h.ListTargets)
	g.POST("/targets", h.CreateTarget, auth.RequireRole(authz.RoleAdmin, authz.RoleTherapist))
	g.DELETE("/targets/:id", h.DeleteTarget, auth.RequireRole(authz.RoleAdmin, authz.RoleTherapist))

	g.GET("/plans", h.ListPlans)
	g.POST("/plans", h.CreatePlan)
	g.PUT("/plans/:id", h.UpdatePlan)
	g.DELETE("/plans/:id", h.DeletePlan)

	g.GET("/data-records", h.ListDataRecords)
	g.POST("/data-records", h.CreateDataRecord, auth.RequireRole(authz.RoleAdmin, authz.RoleTherapist))
	g.DELETE("/data-records/:id", h.DeleteDataRecord, auth.RequireRole(authz.RoleAdmin, authz.RoleTherapist))

	g.GET("/criterion-changes", h.ListCriterionChanges)
	g.POST("/criterion-changes", h.CreateCriterionChange)

	g.GET("/folders", h.ListFolders)
	g.POST("/folders", h.CreateFolder)
	g.POST("/folders/:id/programs", h.AttachProgram)
	g.POST("/folders/:id/targets", h.AttachTarget)
}

// optionalID parses an optional uuid query parameter. An empty value is
// not an error; a malformed one is.
func optionalID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func mapServiceError(err error, fallback string) error {
	switch {
	case errors.Is(err, authz.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrProgramMismatch), errors.Is(err, ErrProgramNotAttached):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) ListPrograms(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	patientID, err := optionalID(c, "patient_id")
	if err != nil {
		return err
	}
	programs, err := h.svc.ListPrograms(c.Request().Context(), identity, patientID)
	if err != nil {
		return mapServiceError(err, "listing programs failed")
	}
	return c.JSON(http.StatusOK, programs)
}

func (h *Handler) CreateProgram(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var p Program
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateProgram(c.Request().Context(), identity, &p)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateProgram(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Program
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	updated, err := h.svc.UpdateProgram(c.Request().Context(), identity, &p)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteProgram(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteProgram(c.Request().Context(), identity, id); err != nil {
		return mapServiceError(err, "deleting program failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "program deleted"})
}

func (h *Handler) ListTargets(c echo.Context) error {
	targets, err := h.svc.ListTargets(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "listing targets failed")
	}
	return c.JSON(http.StatusOK, targets)
}

type createTargetRequest struct {
	Label string `json:"label"`
}

func (h *Handler) CreateTarget(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var req createTargetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.CreateTarget(c.Request().Context(), identity, req.Label)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) DeleteTarget(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.DeleteTarget(c.Request().Context(), identity, id)
	if err != nil {
		return mapServiceError(err, "deleting target failed")
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "target deleted", "target": t})
}

func (h *Handler) ListPlans(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	patientID, err := optionalID(c, "patient_id")
	if err != nil {
		return err
	}
	plans, err := h.svc.ListPlans(c.Request().Context(), identity, patientID)
	if err != nil {
		return mapServiceError(err, "listing plans failed")
	}
	return c.JSON(http.StatusOK, plans)
}

func (h *Handler) CreatePlan(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var p Plan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreatePlan(c.Request().Context(), identity, &p)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Plan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	updated, err := h.svc.UpdatePlan(c.Request().Context(), identity, &p)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePlan(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePlan(c.Request().Context(), identity, id); err != nil {
		return mapServiceError(err, "deleting plan failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "plan deleted"})
}

func (h *Handler) ListDataRecords(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	patientID, err := optionalID(c, "patient_id")
	if err != nil {
		return err
	}
	programID, err := optionalID(c, "program_id")
	if err != nil {
		return err
	}
	records, err := h.svc.ListDataRecords(c.Request().Context(), identity, patientID, programID)
	if err != nil {
		return mapServiceError(err, "listing data records failed")
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) CreateDataRecord(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var rec DataRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateDataRecord(c.Request().Context(), identity, &rec)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) DeleteDataRecord(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDataRecord(c.Request().Context(), identity, id); err != nil {
		return mapServiceError(err, "deleting data record failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "data record deleted"})
}

func (h *Handler) ListCriterionChanges(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	programID, err := optionalID(c, "program_id")
	if err != nil {
		return err
	}
	patientID, err := optionalID(c, "patient_id")
	if err != nil {
		return err
	}
	changes, err := h.svc.ListCriterionChanges(c.Request().Context(), identity, programID, patientID)
	if err != nil {
		return mapServiceError(err, "listing criterion changes failed")
	}
	return c.JSON(http.StatusOK, changes)
}

func (h *Handler) CreateCriterionChange(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var change CriterionChange
	if err := c.Bind(&change); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateCriterionChange(c.Request().Context(), identity, &change)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListFolders(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	patientID, err := optionalID(c, "patient_id")
	if err != nil {
		return err
	}
	folders, err := h.svc.ListFolders(c.Request().Context(), identity, patientID)
	if err != nil {
		return mapServiceError(err, "listing folders failed")
	}
	return c.JSON(http.StatusOK, folders)
}

type createFolderRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Name      string    `json:"name"`
}

func (h *Handler) CreateFolder(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.CreateFolder(c.Request().Context(), identity, req.PatientID, req.Name)
	if errors.Is(err, authz.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

type attachProgramRequest struct {
	ProgramID uuid.UUID `json:"program_id"`
}

func (h *Handler) AttachProgram(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	folderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req attachProgramRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProgramID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "program_id is required")
	}
	if err := h.svc.AttachProgram(c.Request().Context(), identity, folderID, req.ProgramID); err != nil {
		return mapServiceError(err, "attaching program failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "program attached"})
}

type attachTargetRequest struct {
	TargetID  uuid.UUID  `json:"target_id"`
	ProgramID *uuid.UUID `json:"program_id"`
}

func (h *Handler) AttachTarget(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	folderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req attachTargetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TargetID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "target_id is required")
	}
	if err := h.svc.AttachTarget(c.Request().Context(), identity, folderID, req.TargetID, req.ProgramID); err != nil {
		return mapServiceError(err, "attaching target failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "target attached"})
}
