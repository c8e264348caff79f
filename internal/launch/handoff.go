package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/eddigital/lti-blogs/internal/api/middleware"
	"github.com/eddigital/lti-blogs/internal/blog"
	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
	"github.com/eddigital/lti-blogs/internal/session"
)

// StaffViewParam marks a follow-up request asking for staff-assisted
// sign-in into a listed student blog.
const StaffViewParam = "lti_staff_view_blog"

// ErrNoStaffSession is returned when a staff-view request arrives without a
// session previously marked for staff mode.
var ErrNoStaffSession = errors.New("no staff session")

// ErrCourseMismatch is returned when the requested blog does not belong to
// the course recorded in the staff session.
var ErrCourseMismatch = errors.New("blog does not belong to session course")

// ErrSignInFailed is returned when a sign-in attempt does not leave the
// session authenticated.
var ErrSignInFailed = errors.New("session not authenticated after sign-in")

// Workflow implements the staff cross-view handoff: persist the staff
// identity at launch time, list the course's student blogs, and on the
// follow-up request authorize and sign the staff member into one of them.
// Its sign-in primitive is shared with the direct launch path.
type Workflow struct {
	identities  *identity.Service
	blogs       blog.Repository
	sessions    session.Store
	sessionTTL  time.Duration
	helplineURL string
}

// NewWorkflow creates a handoff Workflow.
func NewWorkflow(identities *identity.Service, blogs blog.Repository, sessions session.Store, sessionTTL time.Duration, helplineURL string) *Workflow {
	return &Workflow{
		identities:  identities,
		blogs:       blogs,
		sessions:    sessions,
		sessionTTL:  sessionTTL,
		helplineURL: helplineURL,
	}
}

// ShowStudentBlogs persists the staff launch into a fresh session and
// renders the list of student blogs for the course placement. Nothing is
// provisioned and no access is granted here.
func (wf *Workflow) ShowStudentBlogs(w http.ResponseWriter, r *http.Request, params lti.LaunchParams, roles lti.RoleSet) {
	ctx := r.Context()

	st := &session.State{
		StaffMode:           true,
		StaffRoles:          roles,
		StaffIdentity:       attributesFrom(params),
		StaffCourseID:       params.CourseID,
		StaffResourceLinkID: params.ResourceLinkID,
	}
	if err := wf.sessions.Create(ctx, st); err != nil {
		slog.Error("failed to create staff session", "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Your session could not be established. Please try launching again.")
		return
	}
	session.SetCookie(w, st.Token, wf.sessionTTL)

	blogs, err := wf.blogs.ListByCourse(ctx, params.CourseID, params.ResourceLinkID, blog.TypeStudent)
	if err != nil {
		slog.Error("failed to list student blogs", "course", params.CourseID, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Student blogs could not be listed. Please try launching again.")
		return
	}

	page := staffListPage{Blogs: make([]staffListItem, 0, len(blogs))}
	for _, b := range blogs {
		page.Blogs = append(page.Blogs, staffListItem{ID: b.ID.String(), Title: b.Title})
	}

	renderPage(w, http.StatusOK, "staffList", page)
}

// HandleStaffView serves GET /lti/staff-view, the follow-up request from a
// link on the staff list page.
func (wf *Workflow) HandleStaffView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get(StaffViewParam) != "true" {
		http.NotFound(w, r)
		return
	}

	blogID, err := uuid.Parse(r.URL.Query().Get("blog_id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	st, err := wf.staffSession(r)
	if err != nil {
		slog.Warn("staff view denied", "error", err)
		renderError(w, http.StatusForbidden,
			"Permission denied", "You do not have permission to view this page.")
		return
	}

	target, err := wf.authorizeTarget(ctx, st, blogID)
	if err != nil {
		if errors.Is(err, ErrCourseMismatch) {
			// A tampered blog_id gets a plain redirect to the blog without
			// sign-in; no hint about why.
			slog.Warn("staff view course mismatch", "blog", blogID, "course", st.StaffCourseID)
			http.Redirect(w, r, target.Path, http.StatusFound)
			return
		}
		http.NotFound(w, r)
		return
	}

	user, err := wf.identities.ResolveOrCreate(ctx, st.StaffIdentity)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateEmail) {
			renderPage(w, http.StatusConflict, "error", errorPage{
				Heading:     "Account problem",
				Message:     "This email address is already being used by another user.",
				HelplineURL: wf.helplineURL,
			})
			return
		}
		slog.Error("staff user provisioning failed", "username", st.StaffIdentity.Username, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Your account could not be set up.")
		return
	}

	provisioner := blog.ProvisionerFor(wf.blogs, lti.BlogTypeStudent)
	if err := provisioner.GrantRole(ctx, target.ID, user.ID, st.StaffRoles); err != nil {
		slog.Error("staff role grant failed", "blog", target.ID, "username", user.Username, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Access could not be granted.")
		return
	}

	wf.SignIn(w, r, user, target.ID)
}

// staffSession requires a presented session with staff mode set.
func (wf *Workflow) staffSession(r *http.Request) (*session.State, error) {
	st := middleware.GetSession(r.Context())
	if st == nil || !st.StaffMode {
		return nil, ErrNoStaffSession
	}
	return st, nil
}

// authorizeTarget loads the target blog and checks it belongs to the course
// recorded at launch time. On ErrCourseMismatch the blog is still returned
// so the caller can redirect to it without signing in.
func (wf *Workflow) authorizeTarget(ctx context.Context, st *session.State, blogID uuid.UUID) (*blog.Blog, error) {
	target, err := wf.blogs.GetByID(ctx, blogID)
	if err != nil {
		return nil, fmt.Errorf("loading target blog: %w", err)
	}

	if target.Type != blog.TypeStudent || target.CourseID != st.StaffCourseID {
		return target, ErrCourseMismatch
	}

	return target, nil
}

// SignIn establishes an authenticated session bound to the user and blog,
// then redirects to the blog home. The presented session, if any, is
// rotated away first. The post-condition "is now authenticated" is read
// back from the store; failing it is fatal for the request.
func (wf *Workflow) SignIn(w http.ResponseWriter, r *http.Request, user *identity.User, blogID uuid.UUID) {
	ctx := r.Context()

	target, err := wf.blogs.GetByID(ctx, blogID)
	if err != nil {
		slog.Error("sign-in target lookup failed", "blog", blogID, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Your blog could not be opened.")
		return
	}

	if presented := middleware.GetSession(ctx); presented != nil {
		_ = wf.sessions.Delete(ctx, presented.Token)
	}

	st := &session.State{
		Authenticated: true,
		UserID:        user.ID,
		BlogID:        target.ID,
	}
	if err := wf.sessions.Create(ctx, st); err != nil {
		slog.Error("sign-in session create failed", "username", user.Username, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "You could not be signed in.")
		return
	}
	session.SetCookie(w, st.Token, wf.sessionTTL)

	if err := wf.verifySignedIn(ctx, st.Token); err != nil {
		slog.Error("sign-in verification failed", "username", user.Username, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "You could not be signed in.")
		return
	}

	slog.Info("signed in", "username", user.Username, "blog", target.ID, "path", target.Path)
	http.Redirect(w, r, target.Path, http.StatusFound)
}

func (wf *Workflow) verifySignedIn(ctx context.Context, token uuid.UUID) error {
	st, err := wf.sessions.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignInFailed, err)
	}
	if !st.Authenticated {
		return ErrSignInFailed
	}
	return nil
}
