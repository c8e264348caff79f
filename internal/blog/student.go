package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
)

// studentProvisioner provisions one blog per (course placement, identity).
// A student picks up a new blog for each placement of the tool in a course,
// numbered by a per-course version counter.
type studentProvisioner struct {
	repo Repository
}

func (p *studentProvisioner) Type() BlogType { return TypeStudent }

func (p *studentProvisioner) key(site Site, user *identity.User) Key {
	return Key{
		CourseID:       site.CourseID,
		ResourceLinkID: site.ResourceLinkID,
		Type:           TypeStudent,
		CreatorID:      &user.ID,
	}
}

// Exists reports whether this identity already has a blog for the placement.
func (p *studentProvisioner) Exists(ctx context.Context, site Site, user *identity.User) (bool, error) {
	_, err := p.repo.Find(ctx, p.key(site, user))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrBlogNotFound) {
		return false, nil
	}
	return false, err
}

// GetOrCreate returns the identity's blog for the placement, creating it on
// first launch. A new blog takes version max+1 across the creator's blogs in
// the course; later versions get a suffixed path so paths stay unique.
func (p *studentProvisioner) GetOrCreate(ctx context.Context, site Site, user *identity.User) (uuid.UUID, error) {
	key := p.key(site, user)

	existing, err := p.repo.Find(ctx, key)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrBlogNotFound) {
		return uuid.Nil, fmt.Errorf("finding student blog: %w", err)
	}

	maxVersion, err := p.repo.MaxVersion(ctx, site.CourseID, TypeStudent, user.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("querying max blog version: %w", err)
	}

	count, err := p.repo.CountForCreator(ctx, site.CourseID, TypeStudent, user.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("counting student blogs: %w", err)
	}

	version := maxVersion + 1
	slog.Info("creating student blog",
		"username", user.Username,
		"course", site.CourseID,
		"version", version,
		"existing", count)

	return getOrCreate(ctx, p.repo, key, func() *Blog {
		return &Blog{
			CourseID:       site.CourseID,
			ResourceLinkID: site.ResourceLinkID,
			Type:           TypeStudent,
			CreatorID:      &user.ID,
			Title:          user.DisplayName() + " / " + site.CourseTitle,
			Path:           studentPath(user.Username, site.CourseTitle, version),
			Version:        version,
			SiteCategory:   site.SiteCategory,
		}
	})
}

func studentPath(username, courseTitle string, version int) string {
	path := "/" + Slug(username+"_"+courseTitle)
	if version >= 2 {
		path = fmt.Sprintf("%s-v%d", path, version)
	}
	return path
}

// GrantRole records membership. Learners administer their own blog, as do
// admins; every other role writes as an author. The learner mapping looks
// inverted but is deliberate: the learner owns the blog.
func (p *studentProvisioner) GrantRole(ctx context.Context, blogID, userID uuid.UUID, roles lti.RoleSet) error {
	role := RoleAuthor
	if roles.IsLearner() || roles.IsAdmin() {
		role = RoleAdministrator
	}
	return p.repo.Grant(ctx, blogID, userID, role)
}
