package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
)

// Provisioner finds or creates the destination blog for a launch and grants
// the launching user access. The two variants differ in what uniquely
// identifies a blog and in how LTI roles map to blog roles.
type Provisioner interface {
	Type() BlogType
	Exists(ctx context.Context, site Site, user *identity.User) (bool, error)
	GetOrCreate(ctx context.Context, site Site, user *identity.User) (uuid.UUID, error)
	GrantRole(ctx context.Context, blogID, userID uuid.UUID, roles lti.RoleSet) error
}

// ProvisionerFor selects the variant for the requested blog type. Launches
// that do not ask for a specific type get the shared course variant.
func ProvisionerFor(repo Repository, requested string) Provisioner {
	if requested == string(TypeStudent) {
		return &studentProvisioner{repo: repo}
	}
	return &courseProvisioner{repo: repo}
}

// getOrCreate implements the shared find-else-create-else-refind sequence.
// Losing a creation race to a concurrent launch is a success: the winner's
// blog is looked up and returned.
func getOrCreate(ctx context.Context, repo Repository, key Key, build func() *Blog) (uuid.UUID, error) {
	existing, err := repo.Find(ctx, key)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrBlogNotFound) {
		return uuid.Nil, fmt.Errorf("finding blog: %w", err)
	}

	b := build()
	if err := repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrDuplicateBlog) {
			winner, ferr := repo.Find(ctx, key)
			if ferr != nil {
				return uuid.Nil, fmt.Errorf("refetching blog after duplicate create: %w", ferr)
			}
			return winner.ID, nil
		}
		return uuid.Nil, fmt.Errorf("creating blog: %w", err)
	}

	return b.ID, nil
}
