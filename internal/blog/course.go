package blog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
)

// courseProvisioner provisions one shared blog per course placement. Every
// identity launching through the same resource link lands on the same blog.
type courseProvisioner struct {
	repo Repository
}

func (p *courseProvisioner) Type() BlogType { return TypeCourse }

func (p *courseProvisioner) key(site Site) Key {
	return Key{
		CourseID:       site.CourseID,
		ResourceLinkID: site.ResourceLinkID,
		Type:           TypeCourse,
	}
}

// Exists reports whether the shared blog for this placement already exists.
// The owner is irrelevant for the course variant.
func (p *courseProvisioner) Exists(ctx context.Context, site Site, _ *identity.User) (bool, error) {
	_, err := p.repo.Find(ctx, p.key(site))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrBlogNotFound) {
		return false, nil
	}
	return false, err
}

// GetOrCreate returns the shared blog for the placement, creating it on the
// first launch into the course.
func (p *courseProvisioner) GetOrCreate(ctx context.Context, site Site, _ *identity.User) (uuid.UUID, error) {
	return getOrCreate(ctx, p.repo, p.key(site), func() *Blog {
		return &Blog{
			CourseID:       site.CourseID,
			ResourceLinkID: site.ResourceLinkID,
			Type:           TypeCourse,
			Title:          site.CourseTitle,
			Path:           "/" + Slug(site.CourseID),
			Version:        1,
			SiteCategory:   site.SiteCategory,
		}
	})
}

// GrantRole records membership. Teaching staff and admins administer the
// shared blog, everyone else writes as an author.
func (p *courseProvisioner) GrantRole(ctx context.Context, blogID, userID uuid.UUID, roles lti.RoleSet) error {
	role := RoleAuthor
	if roles.IsStaff() || roles.IsAdmin() {
		role = RoleAdministrator
	}
	return p.repo.Grant(ctx, blogID, userID, role)
}
