package notification

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
)

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// MessageCreator is the Twilio messages endpoint.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSender struct {
	messages MessageCreator
	from     string
}

func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewTwilioSenderWith(client.Api, cfg.From)
}

func NewTwilioSenderWith(messages MessageCreator, from string) *TwilioSender {
	return &TwilioSender{messages: messages, from: from}
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.messages.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return nil
}
