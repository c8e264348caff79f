package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const blogColumns = `id, course_id, resource_link_id, blog_type, creator_id,
	title, path, version, site_category, created_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new blog record. A unique violation on the provisioning
// tuple maps to ErrDuplicateBlog.
func (r *PostgresRepository) Create(ctx context.Context, b *Blog) error {
	query := `
		INSERT INTO blogs (course_id, resource_link_id, blog_type, creator_id, title, path, version, site_category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		b.CourseID, b.ResourceLinkID, b.Type, b.CreatorID,
		b.Title, b.Path, b.Version, b.SiteCategory,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateBlog
		}
		return fmt.Errorf("inserting blog: %w", err)
	}

	return nil
}

// GetByID retrieves a single blog by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Blog, error) {
	query := `SELECT ` + blogColumns + ` FROM blogs WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// Find retrieves the blog matching the uniqueness tuple.
func (r *PostgresRepository) Find(ctx context.Context, key Key) (*Blog, error) {
	if key.CreatorID == nil {
		query := `
			SELECT ` + blogColumns + `
			FROM blogs
			WHERE course_id = $1 AND resource_link_id = $2 AND blog_type = $3 AND creator_id IS NULL`
		return r.scanOne(r.pool.QueryRow(ctx, query, key.CourseID, key.ResourceLinkID, key.Type))
	}

	query := `
		SELECT ` + blogColumns + `
		FROM blogs
		WHERE course_id = $1 AND resource_link_id = $2 AND blog_type = $3 AND creator_id = $4`
	return r.scanOne(r.pool.QueryRow(ctx, query, key.CourseID, key.ResourceLinkID, key.Type, *key.CreatorID))
}

// ListByCourse retrieves all blogs of a type for a course placement,
// oldest first.
func (r *PostgresRepository) ListByCourse(ctx context.Context, courseID, resourceLinkID string, t BlogType) ([]Blog, error) {
	query := `
		SELECT ` + blogColumns + `
		FROM blogs
		WHERE course_id = $1 AND resource_link_id = $2 AND blog_type = $3
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, courseID, resourceLinkID, t)
	if err != nil {
		return nil, fmt.Errorf("listing blogs: %w", err)
	}
	defer rows.Close()

	var blogs []Blog
	for rows.Next() {
		var b Blog
		err := rows.Scan(&b.ID, &b.CourseID, &b.ResourceLinkID, &b.Type, &b.CreatorID,
			&b.Title, &b.Path, &b.Version, &b.SiteCategory, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning blog row: %w", err)
		}
		blogs = append(blogs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blog rows: %w", err)
	}

	if blogs == nil {
		blogs = []Blog{}
	}

	return blogs, nil
}

// MaxVersion returns the highest version of a creator's blogs in a course.
func (r *PostgresRepository) MaxVersion(ctx context.Context, courseID string, t BlogType, creatorID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(version), 0)
		FROM blogs
		WHERE course_id = $1 AND blog_type = $2 AND creator_id = $3`

	var max int
	if err := r.pool.QueryRow(ctx, query, courseID, t, creatorID).Scan(&max); err != nil {
		return 0, fmt.Errorf("querying max blog version: %w", err)
	}

	return max, nil
}

// CountForCreator counts a creator's blogs of a type in a course.
func (r *PostgresRepository) CountForCreator(ctx context.Context, courseID string, t BlogType, creatorID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(id)
		FROM blogs
		WHERE course_id = $1 AND blog_type = $2 AND creator_id = $3`

	var count int
	if err := r.pool.QueryRow(ctx, query, courseID, t, creatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting blogs: %w", err)
	}

	return count, nil
}

// Grant upserts blog membership. The primary key on (blog_id, user_id)
// keeps repeated grants down to one effective row.
func (r *PostgresRepository) Grant(ctx context.Context, blogID, userID uuid.UUID, role MemberRole) error {
	query := `
		INSERT INTO blog_members (blog_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (blog_id, user_id) DO UPDATE SET role = EXCLUDED.role`

	if _, err := r.pool.Exec(ctx, query, blogID, userID, role); err != nil {
		return fmt.Errorf("granting blog role: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Blog, error) {
	var b Blog
	err := row.Scan(&b.ID, &b.CourseID, &b.ResourceLinkID, &b.Type, &b.CreatorID,
		&b.Title, &b.Path, &b.Version, &b.SiteCategory, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlogNotFound
		}
		return nil, fmt.Errorf("querying blog: %w", err)
	}
	return &b, nil
}
