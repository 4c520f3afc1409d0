package models

import "time"

// SoftDelete keeps a row for audit while excluding it from balances.
type SoftDelete struct {
	IsDeleted     bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedReason string     `gorm:"size:255" json:"deleted_reason"`
	DeletedBy     *uint      `json:"deleted_by"`
	DeletedAt     *time.Time `json:"deleted_at"`
}

func (s *SoftDelete) MarkDeleted(reason string, by uint, at time.Time) {
	s.IsDeleted = true
	s.DeletedReason = reason
	s.DeletedBy = &by
	s.DeletedAt = &at
}

func (s *SoftDelete) Restore() {
	s.IsDeleted = false
	s.DeletedReason = ""
	s.DeletedBy = nil
	s.DeletedAt = nil
}

// Columns returns the soft delete fields keyed by column name, for Updates.
func (s SoftDelete) Columns() map[string]any {
	return map[string]any{
		"is_deleted":     s.IsDeleted,
		"deleted_reason": s.DeletedReason,
		"deleted_by":     s.DeletedBy,
		"deleted_at":     s.DeletedAt,
	}
}
