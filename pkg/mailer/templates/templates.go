// Package templates renders the transactional emails sent by the worker.
package templates

import (
	"bytes"
	"errors"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

var ErrUnknownTemplate = errors.New("unknown email template")

type emailTemplate struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var registry = map[string]emailTemplate{
	"welcome": {
		subject: texttpl.Must(texttpl.New("welcome.subject").Parse(`Welcome to {{.AppName}}`)),
		text: texttpl.Must(texttpl.New("welcome.text").Parse(`Hi {{.Name}},

Your account for {{.Email}} has been created. You can sign in at any time with this address.

- The {{.AppName}} team
`)),
		html: htmpl.Must(htmpl.New("welcome.html").Parse(`<!doctype html>
<html><body>
<p>Hi {{.Name}},</p>
<p>Your account for <strong>{{.Email}}</strong> has been created. You can sign in at any time with this address.</p>
<p>&mdash; The {{.AppName}} team</p>
</body></html>`)),
	},
}

// Render executes the named template and returns subject, text and HTML bodies.
func Render(name string, data map[string]any) (string, string, string, error) {
	t, ok := registry[name]
	if !ok {
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	var subject, text, html bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", "", err
	}
	if err := t.text.Execute(&text, data); err != nil {
		return "", "", "", err
	}
	if err := t.html.Execute(&html, data); err != nil {
		return "", "", "", err
	}
	return subject.String(), text.String(), html.String(), nil
}
