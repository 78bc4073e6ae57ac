package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioGateway sends outbound SMS/WhatsApp messages through the
// Twilio REST API. Send failures are logged and returned; callers
// decide whether a failed delivery is fatal.
type TwilioGateway struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

// NewTwilioGateway creates a gateway using the given credentials.
// baseURL is overridable for tests; pass "" for the production API.
func NewTwilioGateway(accountSID, authToken, fromNumber, baseURL string, timeout time.Duration) *TwilioGateway {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Send delivers body to the destination number. A "whatsapp:" prefix
// on the destination routes through the WhatsApp channel, which also
// requires the from number to carry the prefix.
func (g *TwilioGateway) Send(ctx context.Context, to, body string) error {
	if g.accountSID == "" || g.authToken == "" {
		return fmt.Errorf("twilio gateway not configured")
	}

	from := g.fromNumber
	if strings.HasPrefix(to, "whatsapp:") && !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.baseURL, g.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("[Gateway] twilio send to %s failed: %v", to, err)
		return fmt.Errorf("twilio send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[Gateway] twilio send to %s returned %d: %s", to, resp.StatusCode, string(payload))
		return fmt.Errorf("twilio send returned status %d", resp.StatusCode)
	}
	return nil
}
