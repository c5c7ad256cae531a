// Package revenuecat verifies customer subscription status against the
// RevenueCat REST API.
package revenuecat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.revenuecat.com"

// Client queries the RevenueCat v2 API for a project's customers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	projectID  string
}

// NewClient creates a Client for the given project.
func NewClient(apiKey, projectID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		projectID:  projectID,
	}
}

// customer mirrors the subset of the customer resource the client consumes.
type customer struct {
	ActiveEntitlements struct {
		Items []struct {
			EntitlementID string `json:"entitlement_id"`
		} `json:"items"`
	} `json:"active_entitlements"`
}

// IsSubscribed reports whether the customer holds any active entitlement.
// An unknown customer is reported as not subscribed rather than an error,
// matching how the refresh sweep treats lapsed accounts.
func (c *Client) IsSubscribed(ctx context.Context, customerID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v2/projects/%s/customers/%s",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(customerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build customer request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("customer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("customer request returned status %d", resp.StatusCode)
	}

	var cust customer
	if err := json.NewDecoder(resp.Body).Decode(&cust); err != nil {
		return false, fmt.Errorf("failed to decode customer response: %w", err)
	}

	return len(cust.ActiveEntitlements.Items) > 0, nil
}
