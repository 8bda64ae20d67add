package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/route-poi-service/internal/pkg/errors"
	"github.com/route-poi-service/internal/pkg/utils"
	"github.com/route-poi-service/internal/pkg/validator"
	"github.com/route-poi-service/internal/usecase"
	"github.com/route-poi-service/internal/usecase/dto"
	"go.uber.org/zap"
)

// RoutePOIHandler - обработчик запросов POI вдоль маршрута
type RoutePOIHandler struct {
	routePOIUC *usecase.RoutePOIUseCase
	logger     *zap.Logger
}

// NewRoutePOIHandler - создание нового RoutePOIHandler
func NewRoutePOIHandler(routePOIUC *usecase.RoutePOIUseCase, logger *zap.Logger) *RoutePOIHandler {
	return &RoutePOIHandler{
		routePOIUC: routePOIUC,
		logger:     logger,
	}
}

// GetPOIsAlongRoute - поиск POI вдоль маршрута с разбивкой по категориям
// @Summary POI вдоль маршрута
// @Description Возвращает точки интереса рядом с коридором маршрута
// @Tags pois
// @Accept json
// @Produce json
// @Param request body dto.RoutePOIRequest true "Маршрут и фильтры"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/route-pois [post]
func (h *RoutePOIHandler) GetPOIsAlongRoute(c *fiber.Ctx) error {
	var req dto.RoutePOIRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"validation": err.Error(),
		}))
	}

	result, err := h.routePOIUC.GetPOIsAlongRoute(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, result, &utils.Meta{
		Total:     result.Metadata.Total,
		Truncated: result.Metadata.Truncated,
	})
}
