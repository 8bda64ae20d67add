package utils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/route-poi-service/internal/pkg/errors"
)

// SuccessResponse - единый конверт успешного ответа API
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error *errors.AppError `json:"error"`
}

// Meta - сводка по выдаче. Truncated выставляется, когда результат
// обрезан глобальным лимитом и клиенту стоит сузить запрос.
type Meta struct {
	Total     int  `json:"total,omitempty"`
	Truncated bool `json:"truncated,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError переводит AppError в HTTP-ответ с его статус-кодом,
// любая другая ошибка отдаётся как 500 без деталей
func SendError(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Error: appErr,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: errors.ErrInternalServer,
	})
}
