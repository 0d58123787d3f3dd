// Package template renders the passcode email shared by the direct mail
// notifier and the delivery worker.
package template

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// PasscodeSubject is the subject line of the passcode email.
const PasscodeSubject = "Your Login Code"

const passcodeHTML = `<html>
  <body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
    <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 30px; border-radius: 10px;">
      <h2 style="color: #333333; text-align: center;">{{.AppName}} - Login Code</h2>
      <p style="color: #666666; font-size: 16px;">Hello,</p>
      <p style="color: #666666; font-size: 16px;">Your one-time login code is:</p>
      <div style="background-color: #f8f9fa; border: 2px dashed #007bff; border-radius: 8px; padding: 20px; text-align: center; margin: 30px 0;">
        <h1 style="color: #007bff; font-size: 36px; letter-spacing: 8px; margin: 0;">{{.Code}}</h1>
      </div>
      <p style="color: #666666; font-size: 14px;">This code is valid for <strong>{{.Minutes}} minutes</strong>.</p>
      <p style="color: #666666; font-size: 14px;">If you didn't request this code, please ignore this email.</p>
      <hr style="border: none; border-top: 1px solid #eeeeee; margin: 30px 0;">
      <p style="color: #999999; font-size: 12px; text-align: center;">&copy; {{.Year}} {{.AppName}}</p>
    </div>
  </body>
</html>`

const passcodeText = `Your one-time {{.AppName}} login code is {{.Code}}.

This code is valid for {{.Minutes}} minutes.
If you didn't request this code, please ignore this email.
`

var (
	htmlTpl = htmltemplate.Must(htmltemplate.New("passcode_html").Option("missingkey=zero").Parse(passcodeHTML))
	textTpl = texttemplate.Must(texttemplate.New("passcode_text").Option("missingkey=zero").Parse(passcodeText))
)

// PasscodeData feeds the passcode email.
type PasscodeData struct {
	AppName string
	Code    string
	TTL     time.Duration
	Now     time.Time
}

// Email is a rendered message ready for mail.Message.
type Email struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// RenderPasscode renders both bodies of the passcode email.
func RenderPasscode(d PasscodeData) (Email, error) {
	minutes := int(d.TTL / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	data := map[string]any{
		"AppName": d.AppName,
		"Code":    d.Code,
		"Minutes": minutes,
		"Year":    d.Now.Format("2006"),
	}

	var html, text bytes.Buffer
	if err := htmlTpl.Execute(&html, data); err != nil {
		return Email{}, err
	}
	if err := textTpl.Execute(&text, data); err != nil {
		return Email{}, err
	}

	return Email{Subject: PasscodeSubject, HTMLBody: html.String(), TextBody: text.String()}, nil
}
