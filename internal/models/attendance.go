package models

import "time"

// Attendance is one daily attendance mark for a student. Attendance is an
// external collaborator of the progress core; only the analytics engine
// reads it.
type Attendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;index" json:"student_id"`
	ClassID   uint      `gorm:"not null;index" json:"class_id"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	Present   bool      `gorm:"not null" json:"present"`
	CreatedAt time.Time `json:"created_at"`
	Student   Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
