package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogMailer writes outgoing mail to the log instead of sending it.
type LogMailer struct {
	log *logrus.Entry
}

func NewLogMailer() *LogMailer {
	return &LogMailer{log: logrus.WithField("component", "mailer")}
}

func (m *LogMailer) SendConfirmation(_ context.Context, to, name, link string) error {
	m.log.WithFields(logrus.Fields{
		"to":   to,
		"name": name,
		"link": link,
	}).Info("Email confirmation requested")
	return nil
}
