// Package notify formats and delivers restock notices.
package notify

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"dresswatch/catalog"
)

// TextSender delivers one text message. Delivery may fail per recipient.
type TextSender interface {
	Send(to, body string) error
}

// TwilioSender sends texts through the Twilio messaging API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: from}
}

func (s *TwilioSender) Send(to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(s.from)
	params.SetTo(to)
	_, err := s.client.Api.CreateMessage(params)
	return err
}

// DryRunSender logs the message instead of delivering it.
type DryRunSender struct{}

func (DryRunSender) Send(to, body string) error {
	log.Info().Str("to", to).Str("body", body).Msg("dry-run text")
	return nil
}

// Message builds the fixed-template alert text for a restocked item.
func Message(item catalog.Item) string {
	return fmt.Sprintf("👗 FABULOUS ALERT ✨\n\n%s\n%s\n%s", item.Name, item.Price, item.Link)
}

// Announcer fans a message out to a recipient list.
type Announcer struct {
	sender TextSender
}

func NewAnnouncer(sender TextSender) *Announcer {
	return &Announcer{sender: sender}
}

// Announce sends body to every recipient in order. A failed delivery is
// logged and the remaining recipients still get theirs; one bad number
// never blocks the rest. Returns how many deliveries succeeded.
func (a *Announcer) Announce(body string, recipients []string) int {
	sent := 0
	for _, to := range recipients {
		if err := a.sender.Send(to, body); err != nil {
			log.Error().Err(err).Str("to", to).Msg("text delivery failed")
			continue
		}
		log.Info().Str("to", to).Msg("sent update")
		sent++
	}
	return sent
}
