package errors

import "net/http"

var (
	ErrInvalidBoundingBox = New(
		"INVALID_BBOX",
		"Bounding box must contain exactly 4 numbers: [min_lat, max_lat, min_lon, max_lon]",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidRadius = New(
		"INVALID_RADIUS",
		"Invalid deviation radius value",
		http.StatusBadRequest,
	)

	ErrInvalidCategory = New(
		"INVALID_CATEGORY",
		"Unknown POI category",
		http.StatusBadRequest,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	// Внешний источник исчерпал ретраи (429/503/504)
	ErrSourceUnavailable = New(
		"SOURCE_UNAVAILABLE",
		"External POI source is unavailable",
		http.StatusServiceUnavailable,
	)

	// Внешний источник отверг запрос - ретраи не выполняются
	ErrSourceRejected = New(
		"SOURCE_REJECTED",
		"External POI source rejected the request",
		http.StatusBadGateway,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
