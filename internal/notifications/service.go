package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/corpustools/reddit-author-collector/internal/config"
	"github.com/corpustools/reddit-author-collector/internal/models"
)

// Service sends run-completion reports via the configured channels. Report
// delivery is best-effort; a failed notification never fails the run.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendRunReport sends a collection run summary via the configured channels.
// With no channel configured it is a no-op.
func (s *Service) SendRunReport(report *models.RunReport) error {
	if s.config.TeamsWebhookURL == "" && s.config.NotificationEmail == "" {
		logrus.Debug("No notification channels configured, skipping run report")
		return nil
	}

	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent run report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent run report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(report *models.RunReport) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(report *models.RunReport) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   "Reddit Author Collection Run Completed",
		Text: fmt.Sprintf("Collected %d rows from %d unique authors (%s)",
			report.TotalRows, report.AuthorsDiscovered, report.StopReason),
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts: []TeamsFact{
			{Name: "Authors Discovered", Value: fmt.Sprintf("%d / %d", report.AuthorsDiscovered, report.AuthorTarget)},
			{Name: "Discovery Attempts", Value: fmt.Sprintf("%d", report.DiscoveryAttempts)},
			{Name: "Discovery Rows", Value: fmt.Sprintf("%d", report.DiscoveryRows)},
			{Name: "Backfill Rows", Value: fmt.Sprintf("%d", report.BackfillRows)},
			{Name: "Output File", Value: report.OutputFile},
			{Name: "Duration", Value: report.Duration},
			{Name: "Started", Value: report.StartedAt.Format("2006-01-02 15:04:05 UTC")},
		},
		Markdown: true,
	})

	return message
}

func (s *Service) sendEmail(report *models.RunReport) error {
	subject := fmt.Sprintf("Reddit Author Collection Run - %d rows from %d authors",
		report.TotalRows, report.AuthorsDiscovered)

	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(report *models.RunReport) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reddit Author Collection Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #ff4500; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Reddit Author Collection Report</h1>
        <p>Run started {{.StartedAt.Format "January 2, 2006 at 3:04 PM UTC"}}, finished in {{.Duration}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Authors Discovered:</strong> {{.AuthorsDiscovered}} of {{.AuthorTarget}} ({{.StopReason}})</p>
        <p><strong>Discovery Attempts:</strong> {{.DiscoveryAttempts}}</p>
        <p><strong>Discovery Rows:</strong> {{.DiscoveryRows}}</p>
        <p><strong>Backfill Rows:</strong> {{.BackfillRows}}</p>
        <p><strong>Total Rows:</strong> {{.TotalRows}}</p>
        <p><strong>Output File:</strong> {{.OutputFile}}</p>
    </div>

    <hr>
    <p><small>This report was generated automatically by the Reddit author collector.</small></p>
</body>
</html>
`

	t, err := template.New("email").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.RunReport) string {
	var text strings.Builder

	text.WriteString("Reddit Author Collection Report\n")
	text.WriteString(fmt.Sprintf("Started: %s\n", report.StartedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(fmt.Sprintf("Duration: %s\n\n", report.Duration))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Authors Discovered: %d of %d (%s)\n",
		report.AuthorsDiscovered, report.AuthorTarget, report.StopReason))
	text.WriteString(fmt.Sprintf("Discovery Attempts: %d\n", report.DiscoveryAttempts))
	text.WriteString(fmt.Sprintf("Discovery Rows: %d\n", report.DiscoveryRows))
	text.WriteString(fmt.Sprintf("Backfill Rows: %d\n", report.BackfillRows))
	text.WriteString(fmt.Sprintf("Total Rows: %d\n", report.TotalRows))
	text.WriteString(fmt.Sprintf("Output File: %s\n", report.OutputFile))

	text.WriteString("\n---\nThis report was generated automatically by the Reddit author collector.\n")

	return text.String()
}
