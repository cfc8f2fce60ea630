// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// LinkEmailData holds data for the single-button account emails.
type LinkEmailData struct {
	SiteName  string
	Link      string
	ExpiresIn string // e.g., "1 hour"
}

// BuildVerificationEmail creates the sign-up confirmation email.
func BuildVerificationEmail(data LinkEmailData) Email {
	v := layoutData{
		SiteName: data.SiteName,
		Heading:  "Confirm your email",
		Intro:    "Thanks for joining " + data.SiteName + ". Confirm your college email to finish setting up your account.",
		Button:   "Verify Email",
		Link:     data.Link,
		Footer:   "This link expires in " + data.ExpiresIn + ". If you did not create an account, you can safely ignore this email.",
	}
	return Email{
		Subject:  fmt.Sprintf("Verify your %s account", data.SiteName),
		TextBody: linkText(v),
		HTMLBody: renderLayout(v),
	}
}

// BuildPasswordResetEmail creates the password reset email.
func BuildPasswordResetEmail(data LinkEmailData) Email {
	v := layoutData{
		SiteName: data.SiteName,
		Heading:  "Password Reset Request",
		Intro:    "We received a request to reset the password for your " + data.SiteName + " account. Use the button below to choose a new one.",
		Button:   "Reset Password",
		Link:     data.Link,
		Footer:   "This link expires in " + data.ExpiresIn + ". If you did not request a reset, you can safely ignore this email.",
	}
	return Email{
		Subject:  "Password Reset Request",
		TextBody: linkText(v),
		HTMLBody: renderLayout(v),
	}
}

type layoutData struct {
	SiteName string
	Heading  string
	Intro    string
	Button   string
	Link     string
	Footer   string
}

func linkText(v layoutData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", v.Heading)
	fmt.Fprintf(&buf, "%s\n\n", v.Intro)
	fmt.Fprintf(&buf, "%s\n\n", v.Link)
	fmt.Fprintf(&buf, "%s\n", v.Footer)
	return buf.String()
}

var layout = template.Must(template.New("layout").Parse(layoutHTMLTemplate))

func renderLayout(v layoutData) string {
	var buf bytes.Buffer
	_ = layout.Execute(&buf, v)
	return buf.String()
}

const layoutHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #0f172a;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #0f172a;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 10px;">
          <tr>
            <td style="padding: 28px 32px; text-align: center; background-color: #1e3a8a; border-radius: 10px 10px 0 0;">
              <h1 style="margin: 0; font-size: 22px; color: #ffffff;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #111827;">{{.Heading}}</h2>
              <p style="margin: 0 0 24px; font-size: 15px; color: #374151; line-height: 1.5;">{{.Intro}}</p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; background-color: #2563eb; color: #ffffff; text-decoration: none; font-size: 15px; border-radius: 6px;">{{.Button}}</a>
                  </td>
                </tr>
              </table>
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #f9fafb; border-radius: 0 0 10px 10px;">
              <p style="margin: 0; font-size: 12px; color: #6b7280; text-align: center;">{{.Footer}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
