package mailer

import (
	"html/template"
	"strings"
)

var bodyTemplate = template.Must(template.New("certificate").Parse(
	`<p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Your certificate{{if .LookupKey}} for registration <strong>{{.LookupKey}}</strong>{{end}} is attached.</p>
<p>Thank you for taking part.</p>`))

func renderBody(d Dispatch) (string, error) {
	var b strings.Builder
	if err := bodyTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}
