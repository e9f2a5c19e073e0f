package models

// Photo is one uploaded proof image belonging to a submission.
type Photo struct {
	ID           uint   `gorm:"primaryKey"`
	SubmissionID string `gorm:"size:64;index;not null"`
	URL          string `gorm:"size:1024;not null"`
}
