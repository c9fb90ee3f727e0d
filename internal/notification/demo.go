package notification

import (
	"context"
	"fmt"
	"html"
	"strings"

	"outreach_backend/internal/events"
	"outreach_backend/platform/logger"

	qrcode "github.com/skip2/go-qrcode"
)

const demoSubject = "Demo class booked: %s"

const demoTemplate = `<html><body>
<h2>New demo class booked</h2>
<p><strong>{{name}}</strong> ({{phone}}) accepted a free demo class during a call.</p>
<p>Open the lead: <a href="{{leadURL}}">{{leadURL}}</a></p>
<p>The attached QR code opens the same lead from a phone.</p>
</body></html>`

// DemoNotifier emails the counsellor desk whenever a call books a demo.
type DemoNotifier struct {
	sender           Sender
	counsellorEmail  string
	dashboardBaseURL string
	log              *logger.Logger
}

func NewDemoNotifier(sender Sender, counsellorEmail, dashboardBaseURL string, log *logger.Logger) *DemoNotifier {
	return &DemoNotifier{
		sender:           sender,
		counsellorEmail:  counsellorEmail,
		dashboardBaseURL: strings.TrimRight(dashboardBaseURL, "/"),
		log:              log,
	}
}

func (n *DemoNotifier) Notify(ctx context.Context, e events.DemoScheduled) error {
	name := e.LeadName
	if name == "" {
		name = "A prospect"
	}
	leadURL := fmt.Sprintf("%s/leads/%s", n.dashboardBaseURL, e.LeadID)

	body := strings.NewReplacer(
		"{{name}}", html.EscapeString(name),
		"{{phone}}", html.EscapeString(e.Phone),
		"{{leadURL}}", leadURL,
	).Replace(demoTemplate)

	var attachments []Attachment
	png, err := qrcode.Encode(leadURL, qrcode.Medium, 256)
	if err != nil {
		// Still send the email; the QR is a convenience.
		n.log.Warn("qr code generation failed", "error", err.Error())
	} else {
		attachments = append(attachments, Attachment{FileName: "lead-qr.png", Content: png})
	}

	return n.sender.Send(ctx, n.counsellorEmail, fmt.Sprintf(demoSubject, name), body, attachments...)
}
