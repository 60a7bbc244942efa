package services

import (
	"fmt"
	"html"
	"strings"

	"freshdock/models"
	"freshdock/notify"
)

func intakeReceiverMessage(receiver *models.Business, d *models.Dispatch) notify.Message {
	return notify.Message{
		To:      []string{receiver.ContactEmail},
		Subject: fmt.Sprintf("New delivery advice %s from %s", d.DeliveryAdviceNo, d.GrowerName),
		HTML: fmt.Sprintf(
			"<p>%s submitted delivery advice <b>%s</b> (%s) with %d line(s).</p><p>Carrier: %s<br>Truck: %s</p>",
			html.EscapeString(d.GrowerName),
			html.EscapeString(d.DeliveryAdviceNo),
			html.EscapeString(d.DisplayID),
			len(d.Items),
			html.EscapeString(orDash(d.Carrier)),
			html.EscapeString(orDash(d.TruckNumber)),
		),
	}
}

func intakeGrowerMessage(email string, receiver *models.Business, d *models.Dispatch, statusURL string) notify.Message {
	return notify.Message{
		To:      []string{email},
		Subject: fmt.Sprintf("Delivery advice %s received by %s", d.DeliveryAdviceNo, receiver.Name),
		HTML: fmt.Sprintf(
			"<p>Thanks %s. %s has your delivery advice <b>%s</b>.</p><p>Track it at <a href=\"%s\">%s</a>.</p>",
			html.EscapeString(d.GrowerName),
			html.EscapeString(receiver.Name),
			html.EscapeString(d.DeliveryAdviceNo),
			html.EscapeString(statusURL),
			html.EscapeString(statusURL),
		),
	}
}

func welcomeMessage(user *models.User, supplier, receiver *models.Business, password, loginURL string) notify.Message {
	return notify.Message{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("%s invited you to FreshDock", receiver.Name),
		HTML: fmt.Sprintf(
			"<p>Hello %s,</p><p>%s created a FreshDock account for %s.</p>"+
				"<p>Email: %s<br>Temporary password: <code>%s</code></p><p><a href=\"%s\">Sign in</a> and change it.</p>",
			html.EscapeString(user.Name),
			html.EscapeString(receiver.Name),
			html.EscapeString(supplier.Name),
			html.EscapeString(user.Email),
			html.EscapeString(password),
			html.EscapeString(loginURL),
		),
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
