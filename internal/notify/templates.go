package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"call-intelligence/internal/calls"
	"call-intelligence/internal/decision"
	"call-intelligence/internal/recommend"
)

// Mail kinds accepted by RenderMail.
const (
	KindAction   = "action"
	KindFollowUp = "follow_up"
	KindReminder = "reminder"
)

// Reminder flavours.
const (
	ReminderFollowUp   = "follow_up"
	ReminderUrgent     = "urgent"
	ReminderEscalation = "escalation"
)

var reminderTitles = map[string]string{
	ReminderFollowUp:   "Follow-Up Reminder",
	ReminderUrgent:     "Urgent Action Required",
	ReminderEscalation: "Escalation Reminder",
}

// accent colours per priority level
var levelColors = map[string]string{
	decision.PriorityUrgent: "#dc2626",
	decision.PriorityHigh:   "#ea580c",
	decision.PriorityMedium: "#0284c7",
	decision.PriorityLow:    "#059669",
}

const baseLayout = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background-color:#f3f4f6;">
<table role="presentation" style="width:100%;border-collapse:collapse;"><tr><td style="padding:40px 0;">
<table role="presentation" style="width:600px;margin:0 auto;background-color:#ffffff;border-radius:8px;">
<tr><td style="background:{{.Accent}};padding:32px;text-align:center;border-radius:8px 8px 0 0;">
<h1 style="margin:0;color:#ffffff;font-size:26px;">{{.Title}}</h1>
{{if .Subtitle}}<p style="margin:10px 0 0 0;color:#f9fafb;font-size:15px;">{{.Subtitle}}</p>{{end}}
</td></tr>
<tr><td style="padding:32px;">{{template "content" .}}</td></tr>
<tr><td style="background-color:#f9fafb;padding:24px;text-align:center;border-top:1px solid #e5e7eb;border-radius:0 0 8px 8px;">
<p style="margin:0;color:#9ca3af;font-size:12px;">Call Intelligence Platform</p>
</td></tr>
</table></td></tr></table>
</body>
</html>`

const actionContent = `{{define "content"}}
<h2 style="margin:0 0 12px 0;color:#111827;font-size:18px;">Recommended action</h2>
<p style="margin:0 0 20px 0;color:#1f2937;font-size:16px;font-weight:600;">{{.Decision.FinalAction}}</p>
<table role="presentation" style="width:100%;margin-bottom:20px;font-size:14px;color:#374151;">
<tr><td>Priority</td><td><strong>{{.Decision.PriorityScore}}</strong> ({{.Decision.PriorityLevel}})</td></tr>
<tr><td>Risk</td><td>{{.Decision.RiskLevel}}</td></tr>
<tr><td>Opportunity</td><td>{{.Decision.OpportunityLevel}}</td></tr>
<tr><td>Intent</td><td>{{.Decision.Intent}}</td></tr>
<tr><td>Sentiment</td><td>{{.Decision.SentimentLabel}}</td></tr>
<tr><td>Confidence</td><td>{{.Decision.ConfidenceScore}}%</td></tr>
{{if .Decision.EscalationRequired}}<tr><td colspan="2" style="color:#dc2626;font-weight:600;">Escalation required</td></tr>{{end}}
{{if .Decision.RevenueOpportunity}}<tr><td colspan="2" style="color:#059669;font-weight:600;">Revenue opportunity</td></tr>{{end}}
</table>
{{if .Summary}}<h3 style="margin:0 0 8px 0;color:#111827;font-size:15px;">Summary</h3>
<p style="margin:0 0 20px 0;color:#4b5563;font-size:14px;line-height:1.6;">{{.Summary}}</p>{{end}}
{{if .Decision.RulesApplied}}<h3 style="margin:0 0 8px 0;color:#111827;font-size:15px;">Rules applied</h3>
<ul style="margin:0 0 20px 0;color:#4b5563;font-size:13px;">{{range .Decision.RulesApplied}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{if .Safety.Warnings}}<div style="background:#fef2f2;border-left:4px solid #dc2626;padding:16px;margin-bottom:20px;">
<h3 style="margin:0 0 8px 0;color:#7f1d1d;font-size:15px;">{{if .Safety.IsSafe}}Review before acting{{else}}Approval required{{end}}</h3>
<ul style="margin:0;color:#991b1b;font-size:13px;">{{range .Safety.Warnings}}<li>{{.}}</li>{{end}}</ul>
</div>{{end}}
<p style="color:#6b7280;font-size:12px;text-align:center;margin:0;">Call ID: {{.CallID}}</p>
{{end}}`

const followUpContent = `{{define "content"}}
<p style="color:#1f2937;font-size:15px;line-height:1.7;margin:0 0 20px 0;">Dear Valued Customer,</p>
<p style="color:#1f2937;font-size:15px;line-height:1.7;margin:0 0 20px 0;">Thank you for your recent call with our team. We have received your inquiry and are working on it.</p>
<div style="background:#f0f9ff;border-left:4px solid #0284c7;padding:20px;border-radius:8px;margin:20px 0;">
<h3 style="margin:0 0 10px 0;color:#0c4a6e;font-size:16px;">What we discussed</h3>
<p style="margin:0;color:#0369a1;font-size:14px;line-height:1.6;">{{.Summary}}</p>
</div>
<p style="color:#1f2937;font-size:15px;line-height:1.7;margin:20px 0;">Our team is reviewing your request and will get back to you shortly with next steps. If you have any questions, reply to this email.</p>
{{end}}`

const reminderContent = `{{define "content"}}
<div style="background:#fef2f2;padding:24px;border-radius:8px;border-left:4px solid {{.Accent}};margin-bottom:24px;">
<h2 style="margin:0 0 12px 0;color:#7f1d1d;font-size:18px;">Pending action</h2>
<p style="margin:0;color:#991b1b;font-size:16px;font-weight:500;">{{.Decision.FinalAction}}</p>
</div>
<p style="color:#4b5563;font-size:14px;line-height:1.6;margin-bottom:24px;">This call was processed on <strong>{{.ProcessedOn}}</strong> and is still {{.Status}}.</p>
<p style="color:#6b7280;font-size:12px;text-align:center;margin:0;">Call ID: {{.CallID}}</p>
{{end}}`

var (
	actionTmpl   = template.Must(template.Must(template.New("action").Parse(baseLayout)).Parse(actionContent))
	followUpTmpl = template.Must(template.Must(template.New("follow_up").Parse(baseLayout)).Parse(followUpContent))
	reminderTmpl = template.Must(template.Must(template.New("reminder").Parse(baseLayout)).Parse(reminderContent))
)

type mailView struct {
	Title       string
	Subtitle    string
	Accent      string
	CallID      string
	Status      calls.Status
	ProcessedOn string
	Summary     string
	Decision    decision.Decision
	Safety      decision.SafetyReport
}

func viewFor(c calls.Call) mailView {
	accent, ok := levelColors[c.Decision.PriorityLevel]
	if !ok {
		accent = levelColors[decision.PriorityMedium]
	}
	return mailView{
		Accent:      accent,
		CallID:      c.ID,
		Status:      c.Status,
		ProcessedOn: c.CreatedAt.Format("January 02, 2006"),
		Summary:     summaryOf(c.Recommendation),
		Decision:    c.Decision,
	}
}

func summaryOf(r recommend.Recommendation) string {
	for _, s := range []string{r.CallSummaryDetailed, r.CallSummaryShort} {
		if s != "" && s != recommend.Placeholder {
			return s
		}
	}
	return ""
}

func priorityLabel(c calls.Call) string {
	if c.Decision.PriorityLevel == "" {
		return strings.ToUpper(decision.PriorityMedium)
	}
	return strings.ToUpper(c.Decision.PriorityLevel)
}

// RenderAction renders the reviewer notification for a decided call. The
// safety report is computed from the final action.
func RenderAction(c calls.Call) (subject, body string, err error) {
	v := viewFor(c)
	v.Title = "Action Required"
	v.Subtitle = fmt.Sprintf("%s priority call", priorityLabel(c))
	v.Safety = decision.ValidateActionSafety(c.Decision.FinalAction)
	body, err = execute(actionTmpl, v)
	return fmt.Sprintf("Action Required: %s Priority Call", priorityLabel(c)), body, err
}

// RenderFollowUp renders the customer-facing follow-up mail.
func RenderFollowUp(c calls.Call) (subject, body string, err error) {
	v := viewFor(c)
	v.Title = "Thank You for Your Call!"
	v.Subtitle = "We appreciate you taking the time to speak with us"
	v.Accent = levelColors[decision.PriorityMedium]
	if v.Summary == "" {
		v.Summary = "We discussed your inquiry and concerns during our conversation."
	}
	body, err = execute(followUpTmpl, v)
	return "Following up on your call", body, err
}

// RenderReminder renders a reminder for a call still waiting on review.
// Unknown reminder flavours fall back to a plain reminder title.
func RenderReminder(c calls.Call, flavour string) (subject, body string, err error) {
	v := viewFor(c)
	v.Title = "Reminder"
	if t, ok := reminderTitles[flavour]; ok {
		v.Title = t
	}
	v.Subtitle = "This action requires your attention"
	body, err = execute(reminderTmpl, v)
	name := c.AudioFilename
	if name == "" {
		name = c.ID
	}
	return "Reminder: Pending Action on Call " + name, body, err
}

// RenderMail dispatches on kind.
func RenderMail(c calls.Call, kind, flavour string) (subject, body string, err error) {
	switch kind {
	case KindAction, "":
		return RenderAction(c)
	case KindFollowUp:
		return RenderFollowUp(c)
	case KindReminder:
		return RenderReminder(c, flavour)
	default:
		return "", "", fmt.Errorf("notify: unknown mail kind %q", kind)
	}
}

func execute(t *template.Template, v mailView) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
