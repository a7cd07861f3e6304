// Package audit appends business events to audit_logs.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Entry is one event to record. Details is marshalled to JSON unless it
// is already a string.
type Entry struct {
	Action     string
	ObjectType string
	ObjectID   any
	Details    any
}

type Trail struct {
	log     *logrus.Logger
	dropped atomic.Int64
}

func NewTrail(log *logrus.Logger) *Trail {
	return &Trail{log: log}
}

// Record writes e inside a savepoint of tx. A failed insert rolls back
// only the savepoint; the caller's transaction carries on and the loss
// is reported to the logger.
func (t *Trail) Record(ctx context.Context, tx *gorm.DB, e Entry) {
	actor := ActorFrom(ctx)
	row := models.AuditLog{
		UserID:     actor.UserPtr(),
		Action:     e.Action,
		ObjectType: e.ObjectType,
		ObjectID:   fmt.Sprint(e.ObjectID),
		Details:    detailsString(e.Details),
		IPAddress:  actor.IP,
	}

	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&row).Error
	})
	if err != nil {
		t.dropped.Add(1)
		config.LogError(t.log, "audit", "Record", "audit entry dropped", logrus.Fields{
			"action":      e.Action,
			"object_type": e.ObjectType,
			"object_id":   row.ObjectID,
			"details":     row.Details,
		}, err)
	}
}

// Dropped counts entries that could not be written since start.
func (t *Trail) Dropped() int64 {
	return t.dropped.Load()
}

func detailsString(d any) string {
	switch v := d.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%v", d)
	}
	return string(raw)
}
