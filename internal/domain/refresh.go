package domain

import (
	"time"

	"github.com/google/uuid"
)

// StreamTileRefresh - стрим задач фонового обновления тайлов
const StreamTileRefresh = "stream:tiles:refresh"

// Причины постановки тайла в очередь обновления
const (
	RefreshReasonFetchFailed = "fetch_failed"
	RefreshReasonStaleServed = "stale_served"
)

// RefreshTask - задача на повторную загрузку тайла из внешнего источника
type RefreshTask struct {
	TaskID     uuid.UUID `json:"task_id"`
	TileID     string    `json:"tile_id"`
	Categories []string  `json:"categories"`
	Reason     string    `json:"reason"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RefreshMessage - задача вместе с идентификатором сообщения в стриме
type RefreshMessage struct {
	ID   string
	Task RefreshTask
}
