package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/authcore-io/authcore/store"
)

type templateSet struct {
	subject string
	heading string
	lead    string
	closing string
}

var templateSets = map[store.OtpPurpose]templateSet{
	store.PurposeEmailVerify: {
		subject: "Your email verification code",
		heading: "Verify your email",
		lead:    "Your verification code:",
		closing: "If you did not request this, you can ignore this email.",
	},
	store.PurposePasswordReset: {
		subject: "Your password reset code",
		heading: "Reset your password",
		lead:    "Use the code below to reset your password:",
		closing: "If you did not request this, you can ignore this email.",
	},
	store.PurposeEmailChange: {
		subject: "Your email change confirmation code",
		heading: "Confirm email change",
		lead:    "Your code to change the email address on your account:",
		closing: "If you did not start this change, please disregard this email.",
	},
}

var htmlBody = template.Must(template.New("otp").Parse(`<body style="margin:0;padding:0;background:#f5f5f5;font-family:-apple-system,'Segoe UI',Roboto,sans-serif;">
  <div style="max-width:500px;margin:60px auto;background:#fff;border-radius:12px;overflow:hidden;">
    <div style="background:#008080;padding:30px;text-align:center;">
      <h1 style="margin:0;color:#fff;font-size:24px;">{{.Heading}}</h1>
    </div>
    <div style="padding:40px 30px;">
      <p style="margin:0 0 25px 0;color:#333;font-size:15px;">{{.Lead}}</p>
      <div style="background:#f0fafa;border:2px solid #008080;border-radius:8px;padding:20px;text-align:center;margin-bottom:25px;">
        <div style="font-size:36px;letter-spacing:8px;font-weight:700;color:#008080;font-family:monospace;">{{.Code}}</div>
      </div>
      <p style="margin:0 0 15px 0;color:#333;font-size:15px;">This code expires in <strong>{{.Minutes}} minutes</strong>.</p>
      <p style="margin:0;color:#666;font-size:14px;">{{.Closing}}</p>
    </div>
  </div>
</body>`))

// Render builds the message for one issued code. ttl is rendered in whole
// minutes, rounded up so the email never understates the validity window.
func Render(purpose store.OtpPurpose, code string, ttl time.Duration) (Message, error) {
	set, ok := templateSets[purpose]
	if !ok {
		return Message{}, fmt.Errorf("no template for purpose %q", purpose)
	}

	minutes := int((ttl + time.Minute - 1) / time.Minute)

	var html strings.Builder
	err := htmlBody.Execute(&html, struct {
		Heading, Lead, Closing, Code string
		Minutes                      int
	}{set.heading, set.lead, set.closing, code, minutes})
	if err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	text := fmt.Sprintf("%s %s\nThis code expires in %d minutes.\n%s",
		set.lead, code, minutes, set.closing)

	return Message{Subject: set.subject, HTML: html.String(), Text: text}, nil
}
