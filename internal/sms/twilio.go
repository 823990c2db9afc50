package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// twilioGateway submits messages over the Twilio Messages REST endpoint.
type twilioGateway struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

func newTwilioGateway(accountSID, authToken string) *twilioGateway {
	return &twilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Submit posts one message. Any non-2xx response counts as a failure so
// the channel's retry loop treats it the same as a transport error.
func (g *twilioGateway) Submit(ctx context.Context, body, from, to string) error {
	form := url.Values{}
	form.Set("Body", body)
	form.Set("From", from)
	form.Set("To", to)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.baseURL, g.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building twilio request: %w", err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting to twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}
