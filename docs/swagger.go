// Package docs Route POI Service API.
//
// Сервис поиска точек интереса (POI) вдоль маршрута для планировщика поездок.
// Строит сетку географических тайлов, кэширует выгрузки из OpenStreetMap
// и возвращает отобранные POI рядом с коридором маршрута.
//
// Основные возможности:
// - Поиск POI вдоль маршрута или внутри ограничивающего прямоугольника
// - Двухуровневый тайловый кэш с фоновым обновлением устаревших тайлов
// - Фильтрация по категориям, дедупликация и стратифицированная выборка
// - Справочник поддерживаемых категорий POI
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
