package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/route-poi-service/internal/domain"
	"github.com/route-poi-service/internal/pkg/utils"
	"github.com/route-poi-service/internal/usecase/dto"
	"go.uber.org/zap"
)

// CategoryHandler - обработчик справочника категорий POI
type CategoryHandler struct {
	logger *zap.Logger
}

// NewCategoryHandler - создание нового CategoryHandler
func NewCategoryHandler(logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{logger: logger}
}

// GetCategories - список поддерживаемых категорий POI
// @Summary Категории POI
// @Description Возвращает все поддерживаемые категории и их приоритет
// @Tags categories
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /api/v1/categories [get]
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	codes := domain.AllCategories()
	categories := make([]dto.CategoryInfo, 0, len(codes))
	for _, code := range codes {
		categories = append(categories, dto.CategoryInfo{
			Code:      code,
			Important: domain.IsImportantCategory(code),
		})
	}

	return utils.SendSuccess(c, categories, &utils.Meta{
		Total: len(categories),
	})
}
