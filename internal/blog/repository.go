package blog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrBlogNotFound is returned when a blog record is not found.
var ErrBlogNotFound = errors.New("blog not found")

// ErrDuplicateBlog is returned when a create collides on the uniqueness
// tuple, meaning a concurrent launch created the blog first.
var ErrDuplicateBlog = errors.New("blog already exists for this context")

// Repository provides operations on the blogs and blog_members tables.
type Repository interface {
	Create(ctx context.Context, b *Blog) error
	GetByID(ctx context.Context, id uuid.UUID) (*Blog, error)
	Find(ctx context.Context, key Key) (*Blog, error)
	ListByCourse(ctx context.Context, courseID, resourceLinkID string, t BlogType) ([]Blog, error)

	// MaxVersion returns the highest version among blogs of the given type
	// created by creatorID within courseID, 0 when there are none.
	MaxVersion(ctx context.Context, courseID string, t BlogType, creatorID uuid.UUID) (int, error)
	// CountForCreator counts blogs of the given type created by creatorID
	// within courseID.
	CountForCreator(ctx context.Context, courseID string, t BlogType, creatorID uuid.UUID) (int, error)

	// Grant records blog membership at the given role. Granting a role the
	// user already holds is a no-op.
	Grant(ctx context.Context, blogID, userID uuid.UUID, role MemberRole) error
}
