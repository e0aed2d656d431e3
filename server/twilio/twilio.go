package twilio

import (
	"fmt"
	"strings"

	"github.com/Daskott/safenest/colors"
	"github.com/Daskott/safenest/server/logger"
	"github.com/Daskott/safenest/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var logg = logger.NewLogger()

// ClientWrapper sends guardian notifications over SMS.
// In dev mode, messages are logged instead of sent.
type ClientWrapper struct {
	client  *twilio.RestClient
	config  shared.TwilioConfig
	devMode bool
}

func NewClient(config shared.TwilioConfig, devMode bool) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:  client,
		config:  config,
		devMode: devMode,
	}
}

// Enabled reports whether enough config is present to send messages
func (cw *ClientWrapper) Enabled() bool {
	return cw.devMode || (strings.TrimSpace(cw.config.AccountSid) != "" &&
		strings.TrimSpace(cw.config.AuthToken) != "" &&
		strings.TrimSpace(cw.config.MessagingServiceSid) != "")
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.devMode {
		logg.Infof(colors.Magenta("[sms to %v] ")+"%v", to, msg)
		return nil
	}

	if !cw.Enabled() {
		return fmt.Errorf("twilio is not configured")
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("CreateMessage: %v", err)
	}

	if resp.ErrorMessage != nil {
		return fmt.Errorf("CreateMessage: %v", *resp.ErrorMessage)
	}

	return nil
}
