package letter

import (
	"bytes"
	"strings"
	"text/template"

	"autoapply-engine/internal/domain"
)

var fallbackTmpl = template.Must(template.New("fallback").Parse(
	`Hello,

I am writing to apply for the {{.Title}} position{{if .Company}} at {{.Company}}{{end}}.
My background matches what you are looking for and I would be glad to tell
you more about it.

I am available for an interview at your convenience.

Best regards,
{{.Candidate}}`))

// Fallback is the generic letter used when generation fails. A profile may
// carry its own fallback text; otherwise a short template is rendered.
func Fallback(p domain.Profile, j domain.Job) string {
	if t := strings.TrimSpace(p.FallbackLetter); t != "" {
		return t
	}
	var buf bytes.Buffer
	_ = fallbackTmpl.Execute(&buf, map[string]string{
		"Title":     j.Title,
		"Company":   j.CompanyName,
		"Candidate": p.CandidateName,
	})
	return buf.String()
}

// HTMLBody wraps a plain-text letter into the minimal HTML the dispatcher
// sends. Paragraph per blank-line-separated block.
func HTMLBody(text string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(template.HTMLEscapeString(para), "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
