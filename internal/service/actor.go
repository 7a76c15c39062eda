package service

import "github.com/arka-edu/arka-api/internal/models"

// Actor identifies who is performing a state-machine call. Every mutation
// takes an explicit actor; nothing is read from ambient request state.
type Actor struct {
	ID   uint
	Role string
}

// IsStudent reports whether the actor carries the student role.
func (a Actor) IsStudent() bool {
	return a.Role == models.RoleStudent
}

// IsStaff reports whether the actor may perform instructor-level actions.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleTeacher || a.Role == models.RoleAdmin
}

// IsAdmin reports whether the actor sees everything unscoped.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
