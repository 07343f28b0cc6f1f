package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template names understood by Renderer.
const (
	TemplateNotification    = "notification"
	TemplateOfficerApproved = "officer_approved"
	TemplateOTP             = "otp"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Renderer renders the embedded HTML and plain text mail templates.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	funcs := templateFuncs()

	html, err := htmltemplate.New("email").Funcs(htmltemplate.FuncMap(funcs)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html email templates: %w", err)
	}
	text, err := texttemplate.New("email").Funcs(funcs).ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text email templates: %w", err)
	}
	return &Renderer{html: html, text: text}, nil
}

// Render returns the HTML and text bodies of tmpl.
func (r *Renderer) Render(tmpl string, data map[string]string) (string, string, error) {
	var html, text bytes.Buffer
	if err := r.html.ExecuteTemplate(&html, tmpl+".html", data); err != nil {
		return "", "", fmt.Errorf("render %s.html: %w", tmpl, err)
	}
	if err := r.text.ExecuteTemplate(&text, tmpl+".txt", data); err != nil {
		return "", "", fmt.Errorf("render %s.txt: %w", tmpl, err)
	}
	return html.String(), text.String(), nil
}

// compose renders tmpl into a message addressed to the operations mailbox.
func (r *Renderer) compose(opsMailbox, to, subject, tmpl string, data map[string]string) (Email, error) {
	html, text, err := r.Render(tmpl, data)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:       opsMailbox,
		Subject:  routedSubject(subject, to),
		HTMLBody: html,
		TextBody: text,
	}, nil
}

func templateFuncs() texttemplate.FuncMap {
	caser := cases.Title(language.English)
	return texttemplate.FuncMap{
		// label turns enum values like IN_PROGRESS into "In Progress".
		"label": func(s string) string {
			return caser.String(strings.ToLower(strings.ReplaceAll(s, "_", " ")))
		},
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}
