package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mercaline/marketplace-backend/pkg/enums"
)

// OrderTimelineEntry is the append-only event log attached to an order. Every
// state transition writes one entry with the acting user and an optional note.
type OrderTimelineEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	Action      enums.TimelineAction `gorm:"column:action;type:timeline_action;not null"`
	ActorUserID uuid.UUID            `gorm:"column:actor_user_id;type:uuid;not null"`
	ActorRole   enums.ActorRole      `gorm:"column:actor_role;type:actor_role;not null"`
	Comment     *string              `gorm:"column:comment"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
