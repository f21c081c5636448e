package services

import (
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// Notifier is the outbound delivery collaborator. Delivery internals (email,
// messaging) live outside this service; every call is fire-and-forget from
// the caller's point of view and a failure never rolls back the operation
// that triggered it.
type Notifier interface {
	SendTicket(recipient *models.User, event *models.Event, ticket *models.Ticket) error
	SendPaymentPending(recipient *models.User, event *models.Event, amount float64) error
}

// LogNotifier renders the scannable QR image and logs the dispatch. It stands
// in for the real delivery channel.
type LogNotifier struct {
	QRDir string
}

func NewLogNotifier(qrDir string) *LogNotifier {
	return &LogNotifier{QRDir: qrDir}
}

func (n *LogNotifier) SendTicket(recipient *models.User, event *models.Event, ticket *models.Ticket) error {
	filename, err := utils.GenerateQRCodeImage(ticket.QRPayload, ticket.TicketID, n.QRDir)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"recipient": recipient.Email,
		"event":     event.Name,
		"ticket_id": ticket.TicketID,
		"qr_image":  filename,
	}).Info("ticket notification dispatched")
	return nil
}

func (n *LogNotifier) SendPaymentPending(recipient *models.User, event *models.Event, amount float64) error {
	logrus.WithFields(logrus.Fields{
		"recipient": recipient.Email,
		"event":     event.Name,
		"amount":    amount,
	}).Info("payment pending notification dispatched")
	return nil
}
