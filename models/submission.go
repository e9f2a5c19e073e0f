package models

import "time"

// Submission is one user's daily turnover-proof record.
type Submission struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Date      string    `gorm:"size:10;not null;index"`
	Username  string    `gorm:"size:255;not null"`
	Plan      int64     `gorm:"not null"`
	Total     int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
	Status    string    `gorm:"size:16;not null;default:pending"`
	Note      *string   `gorm:"size:512"`
	Photos    []Photo   `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
