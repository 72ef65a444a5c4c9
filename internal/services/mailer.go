package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/devcon-dev/devcon/internal/config"
)

// Email is a fully rendered message ready for delivery.
type Email struct {
	To          string
	Subject     string
	Body        string
	Attachments []string
}

// Sender delivers a rendered email. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(email Email) error
}

// SMTPSender delivers mail through the configured SMTP relay. Every attempt
// is bounded by the configured timeout so a stuck relay cannot wedge the
// notification worker.
type SMTPSender struct {
	cfg config.Config
}

func NewSMTPSender(cfg config.Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(email Email) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.FromEmail)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)

	for _, path := range email.Attachments {
		if _, err := os.Stat(path); err == nil {
			msg.Attach(path)
		}
	}

	dialer := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUsername, s.cfg.SMTPPassword)

	done := make(chan error, 1)

	go func() {
		done <- dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(s.cfg.SMTPTimeout):
		return fmt.Errorf("smtp send timed out after %s", s.cfg.SMTPTimeout)
	}
}

func RegistrationPendingEmail(name, email, track, eventName string) Email {
	body := fmt.Sprintf(`Hello %s,

Registration initiated for %s track at %s.

To finalize your slot, please complete your payment via:
- Online portal (upload payment receipt)
- Visit a Devcon Ambassador on campus for cash payment

Status: PENDING_PAYMENT

Next Steps:
1. Complete payment process
2. Await verification
3. Receive your QR entry ticket

---
%s Registration System`, name, strings.ToUpper(track), eventName, eventName)

	return Email{
		To:      email,
		Subject: fmt.Sprintf("[SYSTEM_LOG]: Registration Initiated for %s", eventName),
		Body:    body,
	}
}

func PaymentVerifiedEmail(name, email, track, eventName, qrPath string) Email {
	body := fmt.Sprintf(`Hello %s,

Your payment has been verified. You are now officially registered for %s.

Event Details:
- Track: %s
- Status: VERIFIED

Your unique QR Code Ticket is attached for entry to:
- Opening Ceremony at SH-1
- Social Night: Mehfil-e-Samaa
- All track events

Important:
- Keep your QR code safe
- Present at entry points
- Backup: Save to phone gallery

See you at %s!

---
%s Registration System`, name, eventName, strings.ToUpper(track), eventName, eventName)

	out := Email{
		To:      email,
		Subject: fmt.Sprintf("[CLEARANCE_GRANTED]: Welcome to %s, %s", eventName, name),
		Body:    body,
	}

	if qrPath != "" {
		out.Attachments = []string{qrPath}
	}

	return out
}

func TeamInviteEmail(name, email, teamName, teamCode, eventName string) Email {
	body := fmt.Sprintf(`Hello %s,

Your team "%s" is registered for %s.

Team Code: %s

Share this code with your teammates so they can join:
1. Register at the %s portal
2. Enter team code: %s
3. Complete registration and payment

---
%s Registration System`, name, teamName, eventName, teamCode, eventName, teamCode, eventName)

	return Email{
		To:      email,
		Subject: fmt.Sprintf("Team Registered: %s at %s", teamName, eventName),
		Body:    body,
	}
}

func PaymentRejectedEmail(name, email, reason, eventName string) Email {
	if reason == "" {
		reason = "Invalid or unclear payment proof"
	}

	body := fmt.Sprintf(`Hello %s,

Your payment could not be verified.

Reason: %s

Next Steps:
1. Check your payment receipt
2. Re-upload clear payment proof
3. Contact support if payment was successful
4. Alternative: Visit campus ambassador for cash payment

Status: PAYMENT_REJECTED
Action Required: RE_SUBMIT_PAYMENT_PROOF

---
%s Registration System`, name, reason, eventName)

	return Email{
		To:      email,
		Subject: "[SYSTEM_ALERT]: Payment Verification Failed",
		Body:    body,
	}
}
