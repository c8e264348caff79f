package lti

import (
	"net/http"
	"strconv"
	"strings"
)

// Launch protocol constants for LTI 1.0 basic launches.
const (
	MessageTypeBasicLaunch = "basic-lti-launch-request"
	VersionLTI1p0          = "LTI-1p0"
)

// Requested blog types carried in the custom_blog_type launch parameter.
const (
	BlogTypeCourse  = "course"
	BlogTypeStudent = "student"
)

// LaunchParams is the flattened view of the launch parameters this service
// consumes. It is built once per request and never mutated afterwards.
type LaunchParams struct {
	MessageType    string
	LTIVersion     string
	ConsumerKey    string
	ResourceLinkID string

	CourseID     string // context_label
	CourseTitle  string // context_title
	BlogType     string // custom_blog_type: ""|"course"|"student"
	SiteCategory int    // custom_site_category, defaults to 1

	SourcedID   string // lis_person_sourcedid, preferred username source
	ExtUsername string // ext_user_username, Moodle fallback
	Email       string
	FirstName   string
	LastName    string
	Roles       []string
}

// ParseLaunch extracts launch parameters from a form-encoded request.
// Missing parameters come back as zero values; validation happens in
// IsBasicLaunch and in the admission controller.
func ParseLaunch(r *http.Request) LaunchParams {
	_ = r.ParseForm()

	p := LaunchParams{
		MessageType:    r.FormValue("lti_message_type"),
		LTIVersion:     r.FormValue("lti_version"),
		ConsumerKey:    r.FormValue("oauth_consumer_key"),
		ResourceLinkID: r.FormValue("resource_link_id"),
		CourseID:       r.FormValue("context_label"),
		CourseTitle:    r.FormValue("context_title"),
		BlogType:       r.FormValue("custom_blog_type"),
		SiteCategory:   1,
		SourcedID:      r.FormValue("lis_person_sourcedid"),
		ExtUsername:    r.FormValue("ext_user_username"),
		Email:          r.FormValue("lis_person_contact_email_primary"),
		FirstName:      r.FormValue("lis_person_name_given"),
		LastName:       r.FormValue("lis_person_name_family"),
	}

	if v := r.FormValue("custom_site_category"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.SiteCategory = n
		}
	}

	if raw := r.FormValue("roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				p.Roles = append(p.Roles, role)
			}
		}
	}

	return p
}

// IsBasicLaunch reports whether the request carried all four markers of a
// basic LTI launch. Anything else is not addressed to this service and is
// passed through untouched.
func (p LaunchParams) IsBasicLaunch() bool {
	return p.MessageType == MessageTypeBasicLaunch &&
		p.LTIVersion == VersionLTI1p0 &&
		p.ConsumerKey != "" &&
		p.ResourceLinkID != ""
}

// Username picks the launch username. The LTI spec puts it in
// lis_person_sourcedid, but Moodle sends ext_user_username instead.
func (p LaunchParams) Username() string {
	if p.SourcedID != "" {
		return p.SourcedID
	}
	return p.ExtUsername
}
