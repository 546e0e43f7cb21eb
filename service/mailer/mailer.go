package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// Sender delivers a single message. The SMTP implementation is swapped for a
// recorder in tests.
type Sender interface {
	Send(to, subject, body string) error
}

type SMTPSender struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	from := cfg.SenderEmail
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPSender{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: from,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	return d.DialAndSend(m)
}


// Enqueue writes an outbox row. Callers pass their open transaction so the
// email only exists if the booking or payment write commits.
func Enqueue(db *gorm.DB, to, subject, body string) error {
	return db.Create(&models.OutboxEmail{
		ToEmail: to,
		Subject: subject,
		Body:    body,
		Status:  models.EmailPending,
	}).Error
}


const maxAttempts = 5

// Worker drains the outbox on an interval. Delivery is at-least-once; a row
// that keeps failing is parked as failed after maxAttempts.
type Worker struct {
	db       *gorm.DB
	sender   Sender
	interval time.Duration
}

func NewWorker(db *gorm.DB, sender Sender) *Worker {
	return &Worker{
		db:       db,
		sender:   sender,
		interval: 30 * time.Second,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	w.interval = d
	return w
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.DispatchPending()
			}
		}
	}()
}

// DispatchPending sends a batch of queued emails and records the outcome on
// each row.
func (w *Worker) DispatchPending() {
	var pending []models.OutboxEmail
	if err := w.db.Where("status = ? AND attempts < ?", models.EmailPending, maxAttempts).
		Order("id ASC").Limit(20).Find(&pending).Error; err != nil {
		log.Printf("mailer: error fetching pending emails: %v", err)
		return
	}

	for i := range pending {
		email := &pending[i]
		email.Attempts++

		if err := w.sender.Send(email.ToEmail, email.Subject, email.Body); err != nil {
			log.Printf("mailer: error sending email %d: %v", email.ID, err)
			email.LastError = err.Error()
			if email.Attempts >= maxAttempts {
				email.Status = models.EmailFailed
			}
		} else {
			now := time.Now()
			email.Status = models.EmailSent
			email.SentAt = &now
			email.LastError = ""
		}

		if err := w.db.Save(email).Error; err != nil {
			log.Printf("mailer: error updating email %d: %v", email.ID, err)
		}
	}
}


// BookingConfirmationBody renders the plain-text confirmation sent after a
// consultation is booked.
func BookingConfirmationBody(c *models.Consultation, service *models.Service, slot *models.AvailableSlot, discountDescription string, finalPrice decimal.Decimal, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", c.Name)
	fmt.Fprintf(&b, "Your consultation has been booked.\n\n")
	fmt.Fprintf(&b, "Service: %s\n", service.Title)
	fmt.Fprintf(&b, "Date: %s\n", slot.Date.Format("Monday, 2 January 2006"))
	fmt.Fprintf(&b, "Time: %s - %s\n", slot.StartTime.Format("15:04"), slot.EndTime.Format("15:04"))
	if discountDescription != "" {
		fmt.Fprintf(&b, "Discount: %s\n", discountDescription)
	}
	fmt.Fprintf(&b, "Total: %s %s\n\n", finalPrice.StringFixed(2), strings.ToUpper(currency))
	fmt.Fprintf(&b, "We will confirm your booking once payment is complete.\n")
	return b.String()
}

// PaymentConfirmationBody renders the receipt sent after payment succeeds.
func PaymentConfirmationBody(c *models.Consultation, service *models.Service, slot *models.AvailableSlot, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", c.Name)
	fmt.Fprintf(&b, "We have received your payment. Your consultation is confirmed.\n\n")
	fmt.Fprintf(&b, "Service: %s\n", service.Title)
	fmt.Fprintf(&b, "Date: %s\n", slot.Date.Format("Monday, 2 January 2006"))
	fmt.Fprintf(&b, "Time: %s - %s\n", slot.StartTime.Format("15:04"), slot.EndTime.Format("15:04"))
	fmt.Fprintf(&b, "Amount paid: %s %s\n\n", c.Amount.StringFixed(2), strings.ToUpper(currency))
	fmt.Fprintf(&b, "We look forward to seeing you.\n")
	return b.String()
}
