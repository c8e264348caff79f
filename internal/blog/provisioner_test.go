package blog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddigital/lti-blogs/internal/blog"
	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
)

// fakeBlogRepo is an in-memory blog.Repository enforcing the same
// uniqueness tuples as the blogs table.
type fakeBlogRepo struct {
	mu      sync.Mutex
	blogs   map[uuid.UUID]*blog.Blog
	grants  map[string]blog.MemberRole
	creates int
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{
		blogs:  make(map[uuid.UUID]*blog.Blog),
		grants: make(map[string]blog.MemberRole),
	}
}

func matches(b *blog.Blog, key blog.Key) bool {
	if b.CourseID != key.CourseID || b.ResourceLinkID != key.ResourceLinkID || b.Type != key.Type {
		return false
	}
	if key.CreatorID == nil {
		return b.CreatorID == nil
	}
	return b.CreatorID != nil && *b.CreatorID == *key.CreatorID
}

func (r *fakeBlogRepo) Create(_ context.Context, b *blog.Blog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := blog.Key{CourseID: b.CourseID, ResourceLinkID: b.ResourceLinkID, Type: b.Type, CreatorID: b.CreatorID}
	for _, existing := range r.blogs {
		if matches(existing, key) {
			return blog.ErrDuplicateBlog
		}
	}

	b.ID = uuid.New()
	clone := *b
	r.blogs[b.ID] = &clone
	r.creates++
	return nil
}

func (r *fakeBlogRepo) GetByID(_ context.Context, id uuid.UUID) (*blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.blogs[id]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, blog.ErrBlogNotFound
}

func (r *fakeBlogRepo) Find(_ context.Context, key blog.Key) (*blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blogs {
		if matches(b, key) {
			clone := *b
			return &clone, nil
		}
	}
	return nil, blog.ErrBlogNotFound
}

func (r *fakeBlogRepo) ListByCourse(_ context.Context, courseID, resourceLinkID string, t blog.BlogType) ([]blog.Blog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []blog.Blog{}
	for _, b := range r.blogs {
		if b.CourseID == courseID && b.ResourceLinkID == resourceLinkID && b.Type == t {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBlogRepo) MaxVersion(_ context.Context, courseID string, t blog.BlogType, creatorID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, b := range r.blogs {
		if b.CourseID == courseID && b.Type == t && b.CreatorID != nil && *b.CreatorID == creatorID && b.Version > max {
			max = b.Version
		}
	}
	return max, nil
}

func (r *fakeBlogRepo) CountForCreator(_ context.Context, courseID string, t blog.BlogType, creatorID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, b := range r.blogs {
		if b.CourseID == courseID && b.Type == t && b.CreatorID != nil && *b.CreatorID == creatorID {
			count++
		}
	}
	return count, nil
}

func (r *fakeBlogRepo) Grant(_ context.Context, blogID, userID uuid.UUID, role blog.MemberRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[blogID.String()+"|"+userID.String()] = role
	return nil
}

func (r *fakeBlogRepo) grantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grants)
}

func (r *fakeBlogRepo) roleOf(blogID, userID uuid.UUID) (blog.MemberRole, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.grants[blogID.String()+"|"+userID.String()]
	return role, ok
}

func testUser(username, first, last string) *identity.User {
	return &identity.User{
		ID:        uuid.New(),
		Username:  username,
		FirstName: first,
		LastName:  last,
	}
}

var testSite = blog.Site{
	CourseID:       "C1",
	ResourceLinkID: "R1",
	CourseTitle:    "Intro to Things",
	SiteCategory:   1,
}

func TestProvisionerFor_Dispatch(t *testing.T) {
	repo := newFakeBlogRepo()

	assert.Equal(t, blog.TypeStudent, blog.ProvisionerFor(repo, "student").Type())
	assert.Equal(t, blog.TypeCourse, blog.ProvisionerFor(repo, "course").Type())
	assert.Equal(t, blog.TypeCourse, blog.ProvisionerFor(repo, "").Type(), "unset type defaults to the shared course variant")
	assert.Equal(t, blog.TypeCourse, blog.ProvisionerFor(repo, "garbage").Type())
}

func TestCourseProvisioner_SharedAcrossIdentities(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "")
	ctx := context.Background()

	alice := testUser("alice", "Alice", "A")
	bob := testUser("bob", "Bob", "B")

	first, err := p.GetOrCreate(ctx, testSite, alice)
	require.NoError(t, err)

	second, err := p.GetOrCreate(ctx, testSite, bob)
	require.NoError(t, err)

	assert.Equal(t, first, second, "course blog is shared per placement")
	assert.Equal(t, 1, repo.creates)

	created, err := repo.GetByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Things", created.Title)
	assert.Equal(t, "/c1", created.Path)
	assert.Nil(t, created.CreatorID)
}

func TestCourseProvisioner_RoleMapping(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "")
	ctx := context.Background()

	user := testUser("ted", "Ted", "T")
	blogID, err := p.GetOrCreate(ctx, testSite, user)
	require.NoError(t, err)

	require.NoError(t, p.GrantRole(ctx, blogID, user.ID, lti.ParseRoles([]string{"Instructor"})))
	role, _ := repo.roleOf(blogID, user.ID)
	assert.Equal(t, blog.RoleAdministrator, role)

	learner := testUser("lea", "Lea", "L")
	require.NoError(t, p.GrantRole(ctx, blogID, learner.ID, lti.ParseRoles([]string{"Learner"})))
	role, _ = repo.roleOf(blogID, learner.ID)
	assert.Equal(t, blog.RoleAuthor, role)
}

func TestStudentProvisioner_PerIdentity(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "student")
	ctx := context.Background()

	ada := testUser("s1234567", "Ada", "Lovelace")
	grace := testUser("s7654321", "Grace", "Hopper")

	adaBlog, err := p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	graceBlog, err := p.GetOrCreate(ctx, testSite, grace)
	require.NoError(t, err)

	assert.NotEqual(t, adaBlog, graceBlog, "each identity gets its own blog")
	assert.Equal(t, 2, repo.creates)

	created, err := repo.GetByID(ctx, adaBlog)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace / Intro to Things", created.Title)
	assert.Equal(t, "/s1234567-intro-to-things", created.Path)
	assert.Equal(t, 1, created.Version)
	require.NotNil(t, created.CreatorID)
	assert.Equal(t, ada.ID, *created.CreatorID)
}

func TestStudentProvisioner_Idempotent(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "student")
	ctx := context.Background()

	ada := testUser("s1234567", "Ada", "Lovelace")

	first, err := p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	second, err := p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.creates)
}

func TestStudentProvisioner_Exists(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "student")
	ctx := context.Background()

	ada := testUser("s1234567", "Ada", "Lovelace")

	exists, err := p.Exists(ctx, testSite, ada)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	exists, err = p.Exists(ctx, testSite, ada)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStudentProvisioner_VersionIncrementsPerPlacement(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "student")
	ctx := context.Background()

	ada := testUser("s1234567", "Ada", "Lovelace")

	first, err := p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	// Second placement of the tool in the same course.
	secondLink := testSite
	secondLink.ResourceLinkID = "R2"

	second, err := p.GetOrCreate(ctx, secondLink, ada)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	b, err := repo.GetByID(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Version)
	assert.Equal(t, "/s1234567-intro-to-things-v2", b.Path, "later versions get a suffixed path")
}

func TestStudentProvisioner_RoleMappingPreserved(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "student")
	ctx := context.Background()

	ada := testUser("s1234567", "Ada", "Lovelace")
	blogID, err := p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	// The learner administers their own blog.
	require.NoError(t, p.GrantRole(ctx, blogID, ada.ID, lti.ParseRoles([]string{"Learner"})))
	role, _ := repo.roleOf(blogID, ada.ID)
	assert.Equal(t, blog.RoleAdministrator, role)

	// Admins administer too.
	admin := testUser("adm", "Ad", "Min")
	require.NoError(t, p.GrantRole(ctx, blogID, admin.ID, lti.ParseRoles([]string{"urn:lti:sysrole:ims/lis/SysAdmin"})))
	role, _ = repo.roleOf(blogID, admin.ID)
	assert.Equal(t, blog.RoleAdministrator, role)

	// Instructors viewing a student blog write as authors.
	ted := testUser("ted", "Ted", "T")
	require.NoError(t, p.GrantRole(ctx, blogID, ted.ID, lti.ParseRoles([]string{"Instructor"})))
	role, _ = repo.roleOf(blogID, ted.ID)
	assert.Equal(t, blog.RoleAuthor, role)
}

func TestGrantRole_Idempotent(t *testing.T) {
	repo := newFakeBlogRepo()
	p := blog.ProvisionerFor(repo, "student")
	ctx := context.Background()

	ada := testUser("s1234567", "Ada", "Lovelace")
	blogID, err := p.GetOrCreate(ctx, testSite, ada)
	require.NoError(t, err)

	roles := lti.ParseRoles([]string{"Learner"})
	require.NoError(t, p.GrantRole(ctx, blogID, ada.ID, roles))
	require.NoError(t, p.GrantRole(ctx, blogID, ada.ID, roles))

	assert.Equal(t, 1, repo.grantCount(), "repeated grants collapse to one effective grant")
}
