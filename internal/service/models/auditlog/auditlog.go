package auditlog

import (
	"bytes"
	"encoding/json"
	"time"
)

// Action is the kind of operation an audit entry records.
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionRead       Action = "READ"
	ActionUpdate     Action = "UPDATE"
	ActionDelete     Action = "DELETE"
	ActionLogin      Action = "LOGIN"
	ActionLogout     Action = "LOGOUT"
	ActionSoftDelete Action = "SOFT_DELETE"
	ActionRestore    Action = "RESTORE"
)

// EntityType is the kind of entity an audit entry refers to.
type EntityType string

const (
	EntityUser      EntityType = "USER"
	EntityProduct   EntityType = "PRODUCT"
	EntityOrder     EntityType = "ORDER"
	EntityOrderItem EntityType = "ORDER_ITEM"
	EntityAuth      EntityType = "AUTH"
	EntitySystem    EntityType = "SYSTEM"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete,
		ActionLogin, ActionLogout, ActionSoftDelete, ActionRestore:
		return true
	}

	return false
}

func (t EntityType) Valid() bool {
	switch t {
	case EntityUser, EntityProduct, EntityOrder, EntityOrderItem, EntityAuth, EntitySystem:
		return true
	}

	return false
}

// Snapshot is a JSON-shaped view of an entity at some moment.
type Snapshot map[string]any

// SnapshotOf converts any JSON-serializable value into a Snapshot.
// Numbers are kept as json.Number so int64 ids survive exactly.
// Values that do not encode to a JSON object yield nil.
func SnapshotOf(v any) Snapshot {
	if v == nil {
		return nil
	}
	if s, ok := v.(Snapshot); ok {
		return s
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil
	}

	return s
}

// Provenance describes where a request came from.
type Provenance struct {
	IP        string
	UserAgent string
}

// Actor identifies who performed the action.
type Actor struct {
	ID   *int64
	Name *string
}

// Event is the input to the recorder.
type Event struct {
	Action      Action
	EntityType  EntityType
	EntityID    *int64
	Actor       Actor
	Provenance  Provenance
	Description string
	OldData     Snapshot
	NewData     Snapshot
	Metadata    Snapshot
}

// Entry is a persisted, immutable audit log record.
type Entry struct {
	ID          int64      `json:"id"`
	Action      Action     `json:"action"`
	EntityType  EntityType `json:"entityType"`
	EntityID    *int64     `json:"entityId,omitempty"`
	UserID      *int64     `json:"userId,omitempty"`
	UserName    *string    `json:"userName,omitempty"`
	UserIP      *string    `json:"userIp,omitempty"`
	UserAgent   *string    `json:"userAgent,omitempty"`
	Description string     `json:"description"`
	OldData     Snapshot   `json:"oldData,omitempty"`
	NewData     Snapshot   `json:"newData,omitempty"`
	Metadata    Snapshot   `json:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Statistics summarizes the audit log.
type Statistics struct {
	Total          int64                `json:"total"`
	ByAction       map[Action]int64     `json:"byAction"`
	ByEntityType   map[EntityType]int64 `json:"byEntityType"`
	RecentActivity int64                `json:"recentActivity"`
	Days           int                  `json:"days"`
}
