package services

import (
	"fmt"
	"time"
)

const mailLayout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 28px; letter-spacing: 6px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
%s
        <div class="footer">
            <p>This is an automated message from Kosanku. Please do not reply.</p>
        </div>
    </div>
</body>
</html>
`

// OTPMessage renders the email carrying a one-time code
func OTPMessage(to, code string, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())

	html := fmt.Sprintf(mailLayout, fmt.Sprintf(`        <h1>Your verification code</h1>
        <p>Use this code to continue:</p>
        <p class="code">%s</p>
        <p>The code expires in %d minutes. If you did not request it, you can ignore this email.</p>`, code, minutes))

	text := fmt.Sprintf(`Your Kosanku verification code: %s

The code expires in %d minutes. If you did not request it, you can ignore this email.
`, code, minutes)

	return Message{To: to, Subject: "Your Kosanku verification code", HTML: html, Text: text}
}

// PasswordChangedMessage renders the notice sent after a password change
func PasswordChangedMessage(to string, at time.Time) Message {
	when := at.UTC().Format("2006-01-02 15:04 MST")

	html := fmt.Sprintf(mailLayout, fmt.Sprintf(`        <h1>Your password was changed</h1>
        <p>The password for your Kosanku account was changed on %s.</p>
        <p>If this was not you, reset your password immediately.</p>`, when))

	text := fmt.Sprintf(`The password for your Kosanku account was changed on %s.

If this was not you, reset your password immediately.
`, when)

	return Message{To: to, Subject: "Your Kosanku password was changed", HTML: html, Text: text}
}
