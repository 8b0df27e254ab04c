package model

import (
	"fmt"
	"strings"
)

// Role selects which view of the analyzed data a caller gets.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
)

// ParseRole accepts a role name case-insensitively. Empty input means coordinator.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleCoordinator:
		return RoleCoordinator, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanComment reports whether the role may append comments.
func (r Role) CanComment() bool {
	return r == RoleCoordinator || r == RoleTeacher
}
