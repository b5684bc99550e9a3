package model

import (
	"strings"
	"time"

	"course-enrollment/internal/domain"
)

type EnrollmentStatus string

const (
	EnrollmentStatusDisabled      EnrollmentStatus = "disabled" // registered, not yet paid/activated
	EnrollmentStatusActive        EnrollmentStatus = "active"
	EnrollmentStatusCommunityOnly EnrollmentStatus = "community_only"
	EnrollmentStatusExpired       EnrollmentStatus = "expired"
)

var EnrollmentStatuses = []EnrollmentStatus{
	EnrollmentStatusDisabled,
	EnrollmentStatusActive,
	EnrollmentStatusCommunityOnly,
	EnrollmentStatusExpired,
}

func ParseEnrollmentStatus(s string) (EnrollmentStatus, error) {
	for _, st := range EnrollmentStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", domain.ErrInvalidArgument
}

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// Student is the per-student enrollment record. Progress is a denormalized
// cache of the plan steps; nil means it has never been computed.
type Student struct {
	UID               string
	Email             string
	DisplayName       string
	Role              Role
	PreferredCurrency string
	Status            EnrollmentStatus
	Progress          *Progress
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewStudent(uid, email, displayName string) (*Student, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Student{
		UID:         uid,
		Email:       strings.TrimSpace(email),
		DisplayName: strings.TrimSpace(displayName),
		Role:        RoleStudent,
		Status:      EnrollmentStatusDisabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Student) IsZero() bool { return s == nil || s.UID == "" }
