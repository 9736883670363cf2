package service

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var priorityColors = map[string]string{
	"urgent": "#dc2626",
	"high":   "#ea580c",
	"medium": "#2563eb",
	"low":    "#6b7280",
}

var healthColors = map[string]string{
	"healthy": "#16a34a",
	"at_risk": "#d97706",
}

const neutralColor = "#6b7280"

func upper(s string) string { return strings.ToUpper(s) }

// healthLabel turns "at_risk" into "At Risk".
func healthLabel(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func since(s domain.Staleness) string {
	if s.Never {
		return domain.NeverInspected
	}
	return s.String() + " ago"
}

func date(t time.Time) string { return t.Format("2006-01-02") }

var textFuncs = texttemplate.FuncMap{
	"upper":       upper,
	"healthLabel": healthLabel,
	"since":       since,
	"date":        date,
}

var htmlFuncs = htmltemplate.FuncMap{
	"upper":       upper,
	"healthLabel": healthLabel,
	"since":       since,
	"date":        date,
	"priorityColor": func(p string) htmltemplate.CSS {
		if c, ok := priorityColors[p]; ok {
			return htmltemplate.CSS(c)
		}
		return htmltemplate.CSS(neutralColor)
	},
	"healthColor": func(h string) htmltemplate.CSS {
		if c, ok := healthColors[h]; ok {
			return htmltemplate.CSS(c)
		}
		return htmltemplate.CSS(neutralColor)
	},
}

// Renderer turns a scoped digest into an email. Output depends only on the
// digest and the renderer's fixed configuration; AsOf is rendered once, in
// the element carrying data-generated-at (HTML) and on the "Generated at:"
// line (text).
type Renderer struct {
	appURL string
	loc    *time.Location
	html   map[domain.Report]*htmltemplate.Template
	text   map[domain.Report]*texttemplate.Template
}

func NewRenderer(appURL string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := &Renderer{
		appURL: strings.TrimRight(appURL, "/"),
		loc:    loc,
		html:   make(map[domain.Report]*htmltemplate.Template, len(domain.Reports)),
		text:   make(map[domain.Report]*texttemplate.Template, len(domain.Reports)),
	}
	for _, report := range domain.Reports {
		h, err := htmltemplate.New(string(report)).Funcs(htmlFuncs).ParseFS(templateFS,
			"templates/layout.html.tmpl", "templates/"+string(report)+".html.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", report, err)
		}
		t, err := texttemplate.New(string(report)).Funcs(textFuncs).ParseFS(templateFS,
			"templates/layout.txt.tmpl", "templates/"+string(report)+".txt.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", report, err)
		}
		r.html[report], r.text[report] = h, t
	}
	return r, nil
}

type view struct {
	Name        string
	Headline    string
	Intro       string
	Columns     []string
	Rows        []domain.Row
	Total       int
	Shown       int
	Truncated   bool
	WindowDays  int
	CTAURL      string
	CTALabel    string
	Footer      string
	GeneratedAt string
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Subject returns the email subject for d.
func Subject(d domain.Digest) string {
	if d.Report == domain.ReportInspection {
		return fmt.Sprintf("[Tree Tracker] %d %s inspection", d.Total, plural(d.Total, "tree needs", "trees need"))
	}
	return fmt.Sprintf("[Tree Tracker] %d overdue %s attention", d.Total, plural(d.Total, "task needs", "tasks need"))
}

func (r *Renderer) view(d domain.Digest) view {
	v := view{
		Name:        d.Recipient.Staff.DisplayName(),
		Rows:        d.Rows,
		Total:       d.Total,
		Shown:       len(d.Rows),
		Truncated:   d.Truncated(),
		GeneratedAt: d.AsOf.In(r.loc).Format(time.RFC3339),
	}
	role := strings.ReplaceAll(string(d.Recipient.Staff.Role), "_", " ")
	switch d.Report {
	case domain.ReportInspection:
		v.WindowDays = int(d.Window / day)
		v.Headline = fmt.Sprintf("%d %s Inspection", d.Total, plural(d.Total, "Tree Needs", "Trees Need"))
		v.Intro = fmt.Sprintf("%d %s not been inspected in over %d days.", d.Total, plural(d.Total, "tree has", "trees have"), v.WindowDays)
		v.Columns = []string{"Tag", "Species", "Zone", "Health", "Last Inspected"}
		v.CTAURL = r.appURL + "/trees"
		v.CTALabel = "View Trees"
		v.Footer = "Automated daily reminder from Tree Tracker. You're receiving this because you're a " + role + "."
	default:
		v.Headline = fmt.Sprintf("%d Overdue Maintenance %s", d.Total, plural(d.Total, "Task", "Tasks"))
		v.Intro = fmt.Sprintf("You have %d overdue maintenance %s that %s attention.", d.Total, plural(d.Total, "task", "tasks"), plural(d.Total, "needs", "need"))
		v.Columns = []string{"Task", "Priority", "Zone", "Overdue", "Assigned To"}
		v.CTAURL = r.appURL + "/tasks"
		v.CTALabel = "View All Tasks"
		v.Footer = "This is an automated alert from Tree Tracker. You're receiving this because you're a " + role + "."
	}
	return v
}

// Render builds the message for d. From is left empty for the transport to fill.
func (r *Renderer) Render(d domain.Digest) (edomain.Message, error) {
	h, ok := r.html[d.Report]
	if !ok {
		return edomain.Message{}, fmt.Errorf("%w: %q", domain.ErrUnknownReport, d.Report)
	}
	v := r.view(d)

	var html bytes.Buffer
	if err := h.ExecuteTemplate(&html, "layout", v); err != nil {
		return edomain.Message{}, fmt.Errorf("render %s html: %w", d.Report, err)
	}
	var text bytes.Buffer
	if err := r.text[d.Report].ExecuteTemplate(&text, "layout", v); err != nil {
		return edomain.Message{}, fmt.Errorf("render %s text: %w", d.Report, err)
	}
	return edomain.Message{
		To:      d.Recipient.Staff.Email,
		Subject: Subject(d),
		HTML:    html.String(),
		Text:    text.String(),
		Tag:     string(d.Report),
	}, nil
}
