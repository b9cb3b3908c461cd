package letter

import (
	"strings"
	"testing"

	"autoapply-engine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestFallbackPrefersProfileText(t *testing.T) {
	p := domain.Profile{CandidateName: "Ada", FallbackLetter: "my own letter"}
	got := Fallback(p, domain.Job{Title: "Dev"})
	assert.Equal(t, "my own letter", got)
}

func TestFallbackTemplate(t *testing.T) {
	p := domain.Profile{CandidateName: "Ada Lovelace"}
	j := domain.Job{Title: "Backend Developer", CompanyName: "Acme"}
	got := Fallback(p, j)
	assert.Contains(t, got, "Backend Developer position at Acme")
	assert.Contains(t, got, "Ada Lovelace")
	assert.Contains(t, got, "interview")
}

func TestFallbackWithoutCompany(t *testing.T) {
	got := Fallback(domain.Profile{CandidateName: "Ada"}, domain.Job{Title: "Dev"})
	assert.Contains(t, got, "the Dev position.")
	assert.False(t, strings.Contains(got, " at ."))
}

func TestHTMLBodyEscapesAndParagraphs(t *testing.T) {
	got := HTMLBody("Hello <world>\n\nSecond\nline")
	assert.Contains(t, got, "<p>Hello &lt;world&gt;</p>")
	assert.Contains(t, got, "<p>Second<br>line</p>")
	assert.True(t, strings.HasPrefix(got, "<html><body>"))
}
