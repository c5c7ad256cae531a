package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/inboxrelay/relay-api/internal/platform/reddit"
	"github.com/inboxrelay/relay-api/internal/store"
)

// InboxFetcher fetches an account's inbox feed given its session credential.
// Implemented by reddit.Client.
type InboxFetcher interface {
	FetchInbox(ctx context.Context, session string) ([]reddit.InboxItem, error)
}

// PushSender delivers one push notification. Implemented by expo.Client.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, badge int) error
}

// CheckInboxPayload is the payload of a CheckInbox task.
type CheckInboxPayload struct {
	AccountID int64 `json:"account_id"`
}

// CheckInboxHandler checks one watched account's inbox and sends a push
// notification for every unread item newer than the last one the customer
// was notified about.
type CheckInboxHandler struct {
	accounts  store.AccountStore
	customers store.CustomerStore
	inbox     InboxFetcher
	push      PushSender
	logger    *slog.Logger
}

// NewCheckInboxHandler creates a CheckInboxHandler.
func NewCheckInboxHandler(
	accounts store.AccountStore,
	customers store.CustomerStore,
	inbox InboxFetcher,
	push PushSender,
	logger *slog.Logger,
) *CheckInboxHandler {
	return &CheckInboxHandler{
		accounts:  accounts,
		customers: customers,
		inbox:     inbox,
		push:      push,
		logger:    logger,
	}
}

// Type returns the CheckInbox type tag.
func (h *CheckInboxHandler) Type() string {
	return TypeCheckInbox
}

// Execute fetches the inbox, cuts the feed at the last notified item and
// pushes one notification per remaining unread item. Accounts with nothing
// new only get their check timestamp refreshed.
func (h *CheckInboxHandler) Execute(ctx context.Context, payload json.RawMessage) error {
	var p CheckInboxPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid check inbox payload: %w", err)
	}

	account, err := h.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return fmt.Errorf("watched account %d: %w", p.AccountID, err)
	}

	items, err := h.inbox.FetchInbox(ctx, account.Session)
	if err != nil {
		return fmt.Errorf("failed to fetch inbox for account %d: %w", account.ID, err)
	}

	unreadCount := 0
	for _, item := range items {
		if item.Unread {
			unreadCount++
		}
	}

	newItems := unreadSince(items, account.LastMessageID)
	if len(newItems) == 0 {
		return h.accounts.MarkChecked(ctx, account.ID)
	}

	customer, err := h.customers.GetByCustomerID(ctx, account.CustomerID)
	if err != nil {
		return fmt.Errorf("customer %s: %w", account.CustomerID, err)
	}
	if customer.PushToken == nil || *customer.PushToken == "" {
		return fmt.Errorf("push token not found for customer %s", account.CustomerID)
	}

	for _, item := range newItems {
		title, body := notificationContent(item)
		if err := h.push.Send(ctx, *customer.PushToken, title, body, unreadCount); err != nil {
			return fmt.Errorf("failed to send push for account %d: %w", account.ID, err)
		}
	}

	h.logger.Info("inbox notifications sent",
		"account_id", account.ID,
		"new_items", len(newItems),
		"unread_count", unreadCount)

	// The feed is newest first, so the first new item is the high-water mark.
	return h.accounts.RecordMessage(ctx, account.ID, newItems[0].ID)
}

// unreadSince returns the unread prefix of the feed up to (excluding) the
// last notified item. A nil marker, or a marker no longer in the feed, keeps
// every unread item.
func unreadSince(items []reddit.InboxItem, lastMessageID *string) []reddit.InboxItem {
	cut := len(items)
	if lastMessageID != nil {
		for i, item := range items {
			if item.ID == *lastMessageID {
				cut = i
				break
			}
		}
	}

	var unread []reddit.InboxItem
	for _, item := range items[:cut] {
		if item.Unread {
			unread = append(unread, item)
		}
	}
	return unread
}

// notificationContent renders the push title and body for one inbox item.
// Private messages lead with the sender; the subject is not shown.
func notificationContent(item reddit.InboxItem) (title, body string) {
	switch item.Kind {
	case reddit.KindCommentReply:
		return fmt.Sprintf("%s in %s", item.Author, item.PostTitle), item.Text
	default:
		return fmt.Sprintf("Message from %s", item.Author), item.Text
	}
}
