package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"
)

//go:embed templates
var templatesFS embed.FS

// Template names under templates/emails.
const (
	TemplateLeadAssigned      = "lead_assigned.html"
	TemplateLeadStatusChanged = "lead_status_changed.html"
	TemplateActivityReminder  = "activity_reminder.html"
)

// LoadTemplates parses every email body with the shared layout. Each email
// gets its own template set so their blocks do not collide.
func LoadTemplates() (map[string]*template.Template, error) {
	base, err := fs.ReadFile(templatesFS, "templates/layouts/base.html")
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(templatesFS, "templates/emails")
	if err != nil {
		return nil, err
	}

	set := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		body, err := fs.ReadFile(templatesFS, "templates/emails/"+entry.Name())
		if err != nil {
			return nil, err
		}

		tmpl, err := template.New(entry.Name()).Parse(string(base))
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.Parse(string(body)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		set[entry.Name()] = tmpl
	}

	return set, nil
}

// Composer renders outbound messages from the embedded templates.
type Composer struct {
	templates map[string]*template.Template
}

func NewComposer() (*Composer, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	return &Composer{templates: templates}, nil
}

func (c *Composer) render(name string, data interface{}) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

func (c *Composer) LeadAssigned(to, leadName, ownerName string) (Message, error) {
	html, err := c.render(TemplateLeadAssigned, map[string]string{
		"LeadName":  leadName,
		"OwnerName": ownerName,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "New Lead Assigned",
		Text:    fmt.Sprintf("Hi %s, A new lead %s has been assigned to you.", ownerName, leadName),
		HTML:    html,
	}, nil
}

func (c *Composer) LeadStatusChanged(to, leadName, oldStatus, newStatus string) (Message, error) {
	html, err := c.render(TemplateLeadStatusChanged, map[string]string{
		"LeadName":  leadName,
		"OldStatus": oldStatus,
		"NewStatus": newStatus,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Lead Status Updated",
		Text:    fmt.Sprintf("Lead %s status changed from %s to %s.", leadName, oldStatus, newStatus),
		HTML:    html,
	}, nil
}

func (c *Composer) ActivityReminder(to, title, leadName string, scheduledAt time.Time) (Message, error) {
	when := scheduledAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	html, err := c.render(TemplateActivityReminder, map[string]string{
		"Title":       title,
		"LeadName":    leadName,
		"ScheduledAt": when,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Activity Reminder",
		Text:    fmt.Sprintf("Activity Reminder: %s for %s at %s", title, leadName, when),
		HTML:    html,
	}, nil
}
