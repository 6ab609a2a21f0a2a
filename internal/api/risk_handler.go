package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banking/fraud-detection/internal/domain"
	"github.com/banking/fraud-detection/internal/scoring"
	"github.com/banking/fraud-detection/internal/service"
	"github.com/labstack/echo/v4"
)

type RiskHandler struct {
	riskService *service.RiskService
}

func NewRiskHandler(riskService *service.RiskService) *RiskHandler {
	return &RiskHandler{
		riskService: riskService,
	}
}

type trainRequest struct {
	Transactions []domain.FiatLeg `json:"transactions"`
}

// Analyze handles POST /risk/analyze
func (h *RiskHandler) Analyze(c echo.Context) error {
	var event domain.RiskEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	assessment, err := h.riskService.Analyze(c.Request().Context(), event)
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidEvent) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "event must carry a fiat or crypto leg"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
	}

	return c.JSON(http.StatusOK, assessment)
}

// Train handles POST /risk/train
func (h *RiskHandler) Train(c echo.Context) error {
	var req trainRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Transactions) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no training transactions provided"})
	}

	h.riskService.Train(req.Transactions)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "trained",
		"samples": len(req.Transactions),
	})
}

// Search handles GET /risk/search
func (h *RiskHandler) Search(c echo.Context) error {
	if !h.riskService.SearchEnabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "search is not configured"})
	}

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing query parameter 'q'"})
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	assessments, total, err := h.riskService.Search(c.Request().Context(), query, from, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":   total,
		"results": assessments,
	})
}

// RegisterRoutes registers the API routes
func (h *RiskHandler) RegisterRoutes(e *echo.Group) {
	e.POST("/analyze", h.Analyze)
	e.POST("/train", h.Train)
	e.GET("/search", h.Search)
}
