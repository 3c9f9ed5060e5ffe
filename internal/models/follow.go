package models

import (
	"time"
)

// Follow is a directed edge: Follower receives updates from Author.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthorID   uint      `gorm:"not null;uniqueIndex:idx_follow_pair;check:chk_follows_no_self,author_id <> follower_id" json:"author_id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"follower_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	Author   User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
