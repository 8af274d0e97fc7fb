package service

import (
	"fmt"
	"strings"

	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/mailer"
)

// NotificationEmail builds the summary email sent for n.
func NotificationEmail(to Recipient, n *domain.Notification) mailer.Message {
	name := strings.TrimSpace(to.FullName)
	if name == "" {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("You have a new notification:\n\n")
	fmt.Fprintf(&b, "%s\n\n", n.Title)
	fmt.Fprintf(&b, "%s\n\n", n.Message)
	fmt.Fprintf(&b, "Type: %s\n\n", n.Type)
	b.WriteString("This is an automated message, please do not reply.\n")

	return mailer.Message{
		To:      to.Email,
		Subject: "New Notification: " + n.Title,
		Text:    b.String(),
	}
}
