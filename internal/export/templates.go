package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var articleTemplate = template.Must(template.New("article.html").Funcs(template.FuncMap{
	"join": strings.Join,
	"formatDate": func(t time.Time, layout string) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/article.html"))

// TemplateData holds data for article template rendering
type TemplateData struct {
	SiteName    string
	Title       string
	Description string
	Canonical   string
	Author      string
	PublishedAt time.Time
	Categories  []string
	HeroImage   string
	ContentHTML template.HTML
}

// RenderArticleHTML renders the article template with provided data
func RenderArticleHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := articleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
