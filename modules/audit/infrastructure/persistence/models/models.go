package models

import "time"

type AuditLog struct {
	ID         string
	ActorID    *string
	ActorName  *string
	ActorEmail *string
	Entity     string
	EntityKey  string
	Operation  string
	PriorState string
	NewState   string
	CreatedAt  time.Time
}
