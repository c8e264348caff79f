package blog

import (
	"time"

	"github.com/google/uuid"
)

// BlogType distinguishes the two provisioning variants.
type BlogType string

// The closed set of blog types.
const (
	TypeCourse  BlogType = "course"
	TypeStudent BlogType = "student"
)

// MemberRole is the blog-local permission level held by a member.
type MemberRole string

// Blog-local permission levels.
const (
	RoleAdministrator MemberRole = "administrator"
	RoleAuthor        MemberRole = "author"
)

// Blog represents a row in the blogs table. CreatorID is set only for
// student blogs; course blogs are shared and have no owner.
type Blog struct {
	ID             uuid.UUID
	CourseID       string
	ResourceLinkID string
	Type           BlogType
	CreatorID      *uuid.UUID
	Title          string
	Path           string
	Version        int
	SiteCategory   int
	CreatedAt      time.Time
}

// Site carries the course context of one launch, the inputs every
// provisioning decision is made from.
type Site struct {
	CourseID       string
	ResourceLinkID string
	CourseTitle    string
	SiteCategory   int
}

// Key is the uniqueness tuple identifying a blog within provisioning.
// CreatorID is nil for the shared course variant.
type Key struct {
	CourseID       string
	ResourceLinkID string
	Type           BlogType
	CreatorID      *uuid.UUID
}
