package service

import (
	"fmt"
	"html"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func registrationReceivedMessage(reg *models.Registration) (string, string) {
	subject := fmt.Sprintf("Registration received: %s", reg.Module)

	idLine := "<p>Your reference ID will be shared once it has been assigned.</p>"
	if id := deref(reg.UniqueID); id != "" {
		idLine = fmt.Sprintf("<p>Your reference ID is <strong>%s</strong>. Keep it for all correspondence.</p>", html.EscapeString(id))
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <h2>Thank you for registering, %s</h2>
        <p>We have received your registration for <strong>%s</strong>. It is now pending review.</p>
        %s
        <p>You will receive another email once your registration has been reviewed.</p>
    </div>
</body>
</html>
`, html.EscapeString(reg.FullName), html.EscapeString(reg.Module), idLine)

	return subject, body
}

func approvalMessage(reg *models.Registration, portalURL string) (string, string) {
	subject := fmt.Sprintf("Approved: %s", reg.Module)

	portal := ""
	if portalURL != "" {
		portal = fmt.Sprintf(`<p><a href="%s" class="button">Open the team portal</a></p>`, html.EscapeString(portalURL))
	}

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 22px; letter-spacing: 3px; font-weight: bold; }
        .button { display: inline-block; padding: 10px 20px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px; }
    </style>
</head>
<body>
    <div class="container">
        <h2>Your team %s has been approved</h2>
        <p>Module: <strong>%s</strong></p>
        <p>Reference ID: <strong>%s</strong></p>
        <p>Team access code:</p>
        <p class="code">%s</p>
        <p>Sign in with this code and your own email address. Every team member shares the same code.</p>
        %s
    </div>
</body>
</html>
`,
		html.EscapeString(reg.DisplayName()),
		html.EscapeString(reg.Module),
		html.EscapeString(deref(reg.UniqueID)),
		html.EscapeString(deref(reg.AccessCode)),
		portal,
	)

	return subject, body
}

func rejectionMessage(reg *models.Registration) (string, string) {
	subject := fmt.Sprintf("Registration update: %s", reg.Module)
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2>Registration update</h2>
        <p>Dear %s,</p>
        <p>We are unable to approve your registration for <strong>%s</strong> at this time.</p>
        <p>Thank you for your interest.</p>
    </div>
</body>
</html>
`, html.EscapeString(reg.FullName), html.EscapeString(reg.Module))

	return subject, body
}
