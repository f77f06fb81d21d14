package ssosession

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// entitlementResponse is the auth backend's answer to the userToken refresh.
type entitlementResponse struct {
	Code int             `json:"code"`
	Data entitlementData `json:"data"`
}

type entitlementData struct {
	SSOID          string          `json:"ssoId"`
	EmailID        string          `json:"emailId"`
	FirstName      string          `json:"fname"`
	Token          string          `json:"token"`
	ProductDetails []productDetail `json:"productDetails"`
}

type productDetail struct {
	ProductCode        string          `json:"productCode"`
	Permissions        []string        `json:"permissions"`
	AccessibleFeatures []string        `json:"accessibleFeatures"`
	SubscriptionDetail json.RawMessage `json:"subscriptionDetail"`
	Subscribed         bool            `json:"subscribed"`
	PRC                string          `json:"prc"`
}

// entitlementRequest carries the identity headers for one refresh call.
type entitlementRequest struct {
	SSOID    string
	TicketID string
	DeviceID string
}

// fetchEntitlements issues the userToken refresh against the auth backend.
// Transport and HTTP-status failures come back as (status, error) so the
// caller can shape its structured failure result.
func (s *Service) fetchEntitlements(ctx context.Context, req entitlementRequest) (*entitlementResponse, int, error) {
	url := fmt.Sprintf("%s/auth/%s/userToken?grantType=refresh_token", s.ssoCfg.AuthHost, s.channel.Merchant)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build entitlement request: %w", err)
	}
	httpReq.Header.Set("x-client-id", s.channel.ClientID)
	httpReq.Header.Set("x-device-id", req.DeviceID)
	httpReq.Header.Set("x-sso-id", req.SSOID)
	httpReq.Header.Set("x-site-app-code", s.channel.AppCode)
	httpReq.Header.Set("X-TICKET-ID", req.TicketID)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("entitlement request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read entitlement response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("entitlement endpoint returned %d", resp.StatusCode)
	}

	var parsed entitlementResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("malformed entitlement response: %w", err)
	}
	return &parsed, resp.StatusCode, nil
}
