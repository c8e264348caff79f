package launch

import (
	"html/template"
	"log/slog"
	"net/http"
)

// The launch surface is browser-facing, so failures and the staff list are
// rendered as minimal standalone HTML pages outside any host layout.
var pageTmpl = template.Must(template.New("pages").Parse(`
{{define "error"}}<!DOCTYPE html>
<html>
<head><title>{{.Heading}}</title></head>
<body>
<div style="width:80%; margin: 0 auto">
<h2>{{.Heading}}</h2>
<p>{{.Message}}{{if .HelplineURL}} Please contact the <a href="{{.HelplineURL}}">helpline</a> for assistance.{{end}}</p>
</div>
</body>
</html>
{{end}}

{{define "staffList"}}<!DOCTYPE html>
<html>
<head><title>Student Blogs For Course</title></head>
<body>
<div style="width:80%; margin: 0 auto">
{{if .Blogs}}
<h2>Student Blogs For Course</h2>
<ul>
{{range .Blogs}}<li><a href="/lti/staff-view?lti_staff_view_blog=true&amp;blog_id={{.ID}}">{{.Title}}</a></li>
{{end}}</ul>
{{else}}
<p>No Student Blogs have been created for this course.</p>
{{end}}
</div>
</body>
</html>
{{end}}`))

type errorPage struct {
	Heading     string
	Message     string
	HelplineURL string
}

type staffListItem struct {
	ID    string
	Title string
}

type staffListPage struct {
	Blogs []staffListItem
}

func renderError(w http.ResponseWriter, status int, heading, message string) {
	renderPage(w, status, "error", errorPage{Heading: heading, Message: message})
}

func renderPage(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("failed to render page", "template", name, "error", err)
	}
}
