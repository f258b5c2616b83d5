package finance

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/psyhead/clinic/internal/platform/auth"
	"github.com/psyhead/clinic/internal/platform/authz"
)

type Handler struct {
	svc    *Service
	policy authz.ModulePolicy
}

func NewHandler(svc *Service, policy authz.ModulePolicy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/stats", h.DashboardStats)

	g := api.Group("/finance", RequireAccess(h.policy), auth.RequireRole(authz.RoleAdmin, authz.RoleTherapist))
	g.GET("/summary", h.MonthSummary)
	g.GET("/transactions", h.RecentTransactions)
	g.POST("/reports", h.RangeReport)
}

func (h *Handler) MonthSummary(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	summary, err := h.svc.MonthSummary(c.Request().Context(), identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading finance summary failed")
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) RecentTransactions(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	transactions, err := h.svc.RecentTransactions(c.Request().Context(), identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading transactions failed")
	}
	return c.JSON(http.StatusOK, transactions)
}

type rangeReportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) RangeReport(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	var req rangeReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be a YYYY-MM-DD date")
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be a YYYY-MM-DD date")
	}

	report, err := h.svc.RangeReport(c.Request().Context(), identity, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "generating report failed")
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) DashboardStats(c echo.Context) error {
	identity, _ := auth.IdentityFromContext(c.Request().Context())

	stats, err := h.svc.DashboardStats(c.Request().Context(), identity)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading dashboard failed")
	}
	return c.JSON(http.StatusOK, stats)
}
