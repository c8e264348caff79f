package launch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/eddigital/lti-blogs/internal/api/middleware"
	"github.com/eddigital/lti-blogs/internal/blog"
	"github.com/eddigital/lti-blogs/internal/identity"
	"github.com/eddigital/lti-blogs/internal/lti"
	"github.com/eddigital/lti-blogs/internal/session"
)

// Controller admits inbound LTI launches. One launch is one pass through:
// well-formedness check, session reset, signature verification, then either
// direct blog provisioning and sign-in, or the staff cross-view handoff.
type Controller struct {
	verifier   lti.Verifier
	identities *identity.Service
	blogs      blog.Repository
	sessions   session.Store
	wf         *Workflow
}

// NewController creates a launch Controller.
func NewController(verifier lti.Verifier, identities *identity.Service, blogs blog.Repository, sessions session.Store, wf *Workflow) *Controller {
	return &Controller{
		verifier:   verifier,
		identities: identities,
		blogs:      blogs,
		sessions:   sessions,
		wf:         wf,
	}
}

// HandleLaunch serves POST /lti/launch.
func (c *Controller) HandleLaunch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := lti.ParseLaunch(r)
	if !params.IsBasicLaunch() {
		// Not an LTI launch; nothing here for it.
		http.NotFound(w, r)
		return
	}

	// Whatever session the browser presented dies before verification, so
	// a pre-planted token can never become the authenticated session.
	c.resetSession(ctx, w, r)

	if err := c.verifier.Verify(ctx, r); err != nil {
		slog.Warn("launch verification failed",
			"consumer", params.ConsumerKey,
			"course", params.CourseID,
			"error", err)
		renderError(w, http.StatusUnauthorized,
			"Connection problem", "There is a problem with your LTI connection.")
		return
	}

	roles := lti.ParseRoles(params.Roles)

	if params.BlogType == lti.BlogTypeStudent && !roles.IsLearner() {
		// Staff previewing a course's student blogs: park their identity in
		// the session and show the list. No blog is touched yet.
		c.wf.ShowStudentBlogs(w, r, params, roles)
		return
	}

	user, err := c.identities.ResolveOrCreate(ctx, attributesFrom(params))
	if err != nil {
		c.renderIdentityError(w, params, err)
		return
	}

	site := blog.Site{
		CourseID:       params.CourseID,
		ResourceLinkID: params.ResourceLinkID,
		CourseTitle:    params.CourseTitle,
		SiteCategory:   params.SiteCategory,
	}

	provisioner := blog.ProvisionerFor(c.blogs, params.BlogType)

	blogID, err := provisioner.GetOrCreate(ctx, site, user)
	if err != nil {
		slog.Error("blog provisioning failed", "course", site.CourseID, "username", user.Username, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Your blog could not be set up. Please try launching again.")
		return
	}

	if err := provisioner.GrantRole(ctx, blogID, user.ID, roles); err != nil {
		slog.Error("blog role grant failed", "blog", blogID, "username", user.Username, "error", err)
		renderError(w, http.StatusInternalServerError,
			"Something went wrong", "Your blog could not be set up. Please try launching again.")
		return
	}

	c.wf.SignIn(w, r, user, blogID)
}

// resetSession destroys any session the browser presented and expires its
// cookie, leaving the request anonymous.
func (c *Controller) resetSession(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if st := middleware.GetSession(ctx); st != nil {
		if err := c.sessions.Delete(ctx, st.Token); err != nil {
			slog.Warn("failed to delete presented session", "error", err)
		}
	}
	session.ClearCookie(w)
}

func (c *Controller) renderIdentityError(w http.ResponseWriter, params lti.LaunchParams, err error) {
	if errors.Is(err, identity.ErrDuplicateEmail) {
		slog.Warn("duplicate email on user provisioning", "username", params.Username())
		renderPage(w, http.StatusConflict, "error", errorPage{
			Heading:     "Account problem",
			Message:     "This email address is already being used by another user.",
			HelplineURL: c.wf.helplineURL,
		})
		return
	}

	slog.Error("user provisioning failed", "username", params.Username(), "error", err)
	renderError(w, http.StatusInternalServerError,
		"Something went wrong", "Your account could not be set up. Please try launching again.")
}

func attributesFrom(params lti.LaunchParams) identity.Attributes {
	return identity.Attributes{
		Username:  params.Username(),
		Email:     params.Email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
	}
}
