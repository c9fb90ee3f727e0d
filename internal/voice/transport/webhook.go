// Package transport holds the wire shapes for telephony webhooks. The
// provider posts application/x-www-form-urlencoded on every callback.
package transport

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// VoiceWebhookForm captures the subset of voice webhook fields we care about.
type VoiceWebhookForm struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	Direction    string
	CallStatus   string
	SpeechResult string
	Confidence   string
	CallDuration string
	RecordingUrl string
	RecordingSid string
}

func ParseVoiceWebhook(c *gin.Context) VoiceWebhookForm {
	return VoiceWebhookForm{
		CallSid:      c.PostForm("CallSid"),
		AccountSid:   c.PostForm("AccountSid"),
		From:         strings.TrimSpace(c.PostForm("From")),
		To:           strings.TrimSpace(c.PostForm("To")),
		Direction:    c.PostForm("Direction"),
		CallStatus:   c.PostForm("CallStatus"),
		SpeechResult: strings.TrimSpace(c.PostForm("SpeechResult")),
		Confidence:   c.PostForm("Confidence"),
		CallDuration: c.PostForm("CallDuration"),
		RecordingUrl: c.PostForm("RecordingUrl"),
		RecordingSid: c.PostForm("RecordingSid"),
	}
}
