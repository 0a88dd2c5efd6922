package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.RecordSink = (*AuditSink)(nil)

// AuditSink appends audit records to the authz_audit_records table.
type AuditSink struct {
	db *gorm.DB
}

// AuditSink returns a sink writing audit records through this store's
// database connection.
func (s *Store) AuditSink() *AuditSink {
	return &AuditSink{db: s.db}
}

// Write appends one audit record
func (s *AuditSink) Write(rec types.Record) error {
	row, e := auditRow(rec)
	if e != nil {
		return e
	}
	if e := s.db.Create(&row).Error; e != nil {
		return fmt.Errorf("write audit record: %w", e)
	}
	return nil
}

type auditModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Time         time.Time `gorm:"column:time;index"`
	Event        string    `gorm:"column:event"`
	UserID       string    `gorm:"column:user_id;index"`
	ResourceType string    `gorm:"column:resource_type"`
	ResourceID   string    `gorm:"column:resource_id"`
	Action       string    `gorm:"column:action"`
	Result       string    `gorm:"column:result"`
	DurationMS   float64   `gorm:"column:duration_ms"`
	Reason       string    `gorm:"column:reason"`
	Metadata     []byte    `gorm:"column:metadata"`
}

func (auditModel) TableName() string {
	return "authz_audit_records"
}

func auditRow(rec types.Record) (auditModel, error) {
	var metadata []byte
	if len(rec.Metadata) > 0 {
		var e error
		if metadata, e = json.Marshal(rec.Metadata); e != nil {
			return auditModel{}, fmt.Errorf("encode audit metadata: %w", e)
		}
	}

	return auditModel{
		ID:           rec.ID,
		Time:         rec.Time.UTC(),
		Event:        string(rec.Event),
		UserID:       rec.UserID,
		ResourceType: string(rec.ResourceType),
		ResourceID:   rec.ResourceID,
		Action:       rec.Action.String(),
		Result:       rec.Result,
		DurationMS:   rec.DurationMS,
		Reason:       rec.Reason,
		Metadata:     metadata,
	}, nil
}
