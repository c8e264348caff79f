package lti

import "strings"

// RoleSet is the normalized set of role tags carried by a launch. It is
// built once from the raw LMS role strings and queried through pure
// predicates; unrecognized roles are kept but match no predicate.
type RoleSet struct {
	tags map[string]bool
}

var learnerRoles = map[string]bool{
	"learner": true,
	"student": true,
}

var adminRoles = map[string]bool{
	"administrator": true,
	"sysadmin":      true,
	"sysadministrator": true,
}

var staffRoles = map[string]bool{
	"instructor":        true,
	"contentdeveloper":  true,
	"teachingassistant": true,
	"mentor":            true,
}

// ParseRoles classifies a list of raw LMS role strings. Both bare names
// ("Instructor") and IMS URNs ("urn:lti:role:ims/lis/Instructor/Lecturer")
// are accepted. Parsing never fails; junk input yields an empty set.
func ParseRoles(raw []string) RoleSet {
	tags := make(map[string]bool, len(raw))
	for _, r := range raw {
		tag := normalizeRole(r)
		if tag != "" {
			tags[tag] = true
		}
	}
	return RoleSet{tags: tags}
}

// normalizeRole reduces a raw role string to its primary role name,
// lowercased. URN prefixes and sub-role suffixes are stripped, so
// "urn:lti:role:ims/lis/Instructor/Lecturer" becomes "instructor".
func normalizeRole(raw string) string {
	r := strings.TrimSpace(raw)
	if r == "" {
		return ""
	}
	if i := strings.LastIndex(r, ":"); i >= 0 {
		r = r[i+1:]
	}
	// URN tails look like "ims/lis/Instructor/Lecturer".
	if strings.HasPrefix(r, "ims/lis/") {
		r = strings.TrimPrefix(r, "ims/lis/")
	}
	if i := strings.Index(r, "/"); i >= 0 {
		r = r[:i]
	}
	return strings.ToLower(r)
}

// IsLearner reports whether the launch carries a learner or student role.
func (s RoleSet) IsLearner() bool {
	return s.any(learnerRoles)
}

// IsAdmin reports whether the launch carries an administrator role.
func (s RoleSet) IsAdmin() bool {
	return s.any(adminRoles)
}

// IsStaff reports whether the launch carries a teaching-staff role
// (instructor, content developer, teaching assistant or mentor).
func (s RoleSet) IsStaff() bool {
	return s.any(staffRoles)
}

// Has reports whether the normalized tag is present in the set.
func (s RoleSet) Has(tag string) bool {
	return s.tags[strings.ToLower(tag)]
}

func (s RoleSet) any(wanted map[string]bool) bool {
	for tag := range s.tags {
		if wanted[tag] {
			return true
		}
	}
	return false
}

// Tags returns the normalized tags, mainly for logging.
func (s RoleSet) Tags() []string {
	out := make([]string, 0, len(s.tags))
	for tag := range s.tags {
		out = append(out, tag)
	}
	return out
}
