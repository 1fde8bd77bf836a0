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

	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/models"
)

// Service pushes hot-lead digests to a webhook and/or email. Delivery is
// best effort: a search response never waits on or fails with a
// notification.
type Service struct {
	config *config.Config
	client *resty.Client
}

var _ Notifier = (*Service)(nil)

// webhookMessage is the MessageCard payload most team-chat webhooks accept.
type webhookMessage struct {
	Type     string           `json:"@type"`
	Context  string           `json:"@context"`
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Sections []webhookSection `json:"sections,omitempty"`
}

type webhookSection struct {
	ActivityTitle    string        `json:"activityTitle,omitempty"`
	ActivitySubtitle string        `json:"activitySubtitle,omitempty"`
	ActivityText     string        `json:"activityText,omitempty"`
	Facts            []webhookFact `json:"facts,omitempty"`
	Markdown         bool          `json:"markdown,omitempty"`
}

type webhookFact struct {
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

// Configured reports whether at least one delivery channel is set up.
func (s *Service) Configured() bool {
	return s.config.WebhookURL != "" || s.config.NotificationEmail != ""
}

// SendHotLeads delivers the HIGH-intent posts of an AI-ranked result via
// every configured channel.
func (s *Service) SendHotLeads(result *models.AIRankedResult) error {
	if len(result.HotLeads) == 0 {
		return nil
	}

	var errors []string

	if s.config.WebhookURL != "" {
		if err := s.sendWebhook(result); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errors = append(errors, fmt.Sprintf("webhook: %v", err))
		} else {
			logrus.Infof("Sent %d hot leads to webhook", len(result.HotLeads))
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(result); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Infof("Sent %d hot leads to %s", len(result.HotLeads), s.config.NotificationEmail)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendWebhook(result *models.AIRankedResult) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(s.buildWebhookMessage(result)).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) buildWebhookMessage(result *models.AIRankedResult) *webhookMessage {
	message := &webhookMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("%d hot leads found", len(result.HotLeads)),
		Text:    fmt.Sprintf("Search %s surfaced %d posts with HIGH buying intent", result.ID, len(result.HotLeads)),
	}

	for _, lead := range result.HotLeads {
		section := webhookSection{
			ActivityTitle:    lead.Title,
			ActivitySubtitle: fmt.Sprintf("%s · u/%s", lead.Platform, lead.Author.Username),
			ActivityText:     lead.URL,
			Markdown:         true,
		}
		if lead.IntentAnalysis != nil && lead.IntentAnalysis.Score != nil {
			section.Facts = []webhookFact{
				{Name: "Intent score", Value: fmt.Sprintf("%d/100", *lead.IntentAnalysis.Score)},
				{Name: "Recommended action", Value: string(lead.IntentAnalysis.RecommendedAction)},
				{Name: "Summary", Value: lead.IntentAnalysis.Summary},
			}
		}
		message.Sections = append(message.Sections, section)
	}

	return message
}

var emailTemplate = template.Must(template.New("hotleads").Parse(`
<h2>{{len .HotLeads}} hot leads</h2>
<p>Search {{.ID}} surfaced the following posts with HIGH buying intent:</p>
{{range .HotLeads}}
<div style="margin-bottom:16px">
  <a href="{{.URL}}"><strong>{{.Title}}</strong></a><br>
  <em>{{.Platform}} · {{.Author.Username}} · {{.Metrics.Comments}} comments</em><br>
  {{if .IntentAnalysis}}{{if .IntentAnalysis.Score}}
  Intent: {{.IntentAnalysis.Score}}/100 ({{.IntentAnalysis.Level}}) — {{.IntentAnalysis.Summary}}
  {{end}}{{end}}
</div>
{{end}}
`))

func (s *Service) sendEmail(result *models.AIRankedResult) error {
	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, result); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("LeadScout: %d hot leads", len(result.HotLeads)))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
