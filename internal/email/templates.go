package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/baharkarakas/provider-payouts/internal/models"
)

type Detail struct {
	Label string
	Value string
}

// Message is the content of one transactional email.
type Message struct {
	Kind          models.NotificationKind
	RecipientName string
	Title         string
	Body          string
	Details       []Detail
	ActionURL     string
	ActionLabel   string
}

type theme struct {
	Accent string
	Icon   string
}

var themes = map[models.NotificationKind]theme{
	models.KindNewOrder:          {"#2563eb", "🛒"},
	models.KindOrderConfirmation: {"#16a34a", "✅"},
	models.KindMessage:           {"#7c3aed", "💬"},
	models.KindDelivery:          {"#0891b2", "📦"},
	models.KindRevisionRequest:   {"#d97706", "✏️"},
	models.KindCancellation:      {"#dc2626", "⛔"},
	models.KindWithdrawalStatus:  {"#059669", "💸"},
	models.KindDispute:           {"#b91c1c", "⚠️"},
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f4f5;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="padding:24px 0;">
    <tr><td align="center">
      <table width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;overflow:hidden;">
        <tr><td style="background:{{.Theme.Accent}};color:#ffffff;padding:20px 24px;font-size:20px;">
          {{.Theme.Icon}} {{.Msg.Title}}
        </td></tr>
        <tr><td style="padding:24px;color:#18181b;font-size:15px;line-height:1.5;">
          {{if .Msg.RecipientName}}<p>Hi {{.Msg.RecipientName}},</p>{{end}}
          <p>{{.Msg.Body}}</p>
          {{if .Msg.Details}}
          <table cellpadding="6" cellspacing="0" style="width:100%;border-collapse:collapse;margin:16px 0;">
            {{range .Msg.Details}}
            <tr>
              <td style="border-bottom:1px solid #e4e4e7;color:#71717a;">{{.Label}}</td>
              <td style="border-bottom:1px solid #e4e4e7;text-align:right;">{{.Value}}</td>
            </tr>
            {{end}}
          </table>
          {{end}}
          {{if .Msg.ActionURL}}
          <p style="text-align:center;margin:24px 0;">
            <a href="{{.Msg.ActionURL}}" style="background:{{.Theme.Accent}};color:#ffffff;padding:12px 20px;border-radius:6px;text-decoration:none;">{{.Msg.ActionLabel}}</a>
          </p>
          {{end}}
        </td></tr>
        <tr><td style="padding:16px 24px;color:#a1a1aa;font-size:12px;">
          You are receiving this email because of activity on your account.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

// Render produces the HTML body for m.
func Render(m Message) (string, error) {
	th, ok := themes[m.Kind]
	if !ok {
		return "", fmt.Errorf("email: no template for kind %q", m.Kind)
	}
	if m.ActionURL != "" && m.ActionLabel == "" {
		m.ActionLabel = "View details"
	}
	var buf bytes.Buffer
	if err := layout.Execute(&buf, struct {
		Theme theme
		Msg   Message
	}{th, m}); err != nil {
		return "", fmt.Errorf("render %s email: %w", m.Kind, err)
	}
	return buf.String(), nil
}
