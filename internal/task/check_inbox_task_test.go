package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/platform/reddit"
	"github.com/inboxrelay/relay-api/internal/store"
)

// fakeAccountStore implements store.AccountStore over a single account.
type fakeAccountStore struct {
	account       *domain.WatchedAccount
	checkedIDs    []int64
	recordedID    int64
	recordedMsgID string
}

func (f *fakeAccountStore) Upsert(context.Context, *domain.WatchedAccount) error { return nil }

func (f *fakeAccountStore) GetByID(_ context.Context, id int64) (*domain.WatchedAccount, error) {
	if f.account == nil || f.account.ID != id {
		return nil, store.ErrAccountNotFound
	}
	clone := *f.account
	return &clone, nil
}

func (f *fakeAccountStore) DueForCheck(context.Context, time.Duration) ([]int64, error) {
	return nil, nil
}

func (f *fakeAccountStore) MarkChecked(_ context.Context, id int64) error {
	f.checkedIDs = append(f.checkedIDs, id)
	return nil
}

func (f *fakeAccountStore) RecordMessage(_ context.Context, id int64, msgID string) error {
	f.recordedID = id
	f.recordedMsgID = msgID
	return nil
}

// fakeCustomerStore implements store.CustomerStore over a single customer.
type fakeCustomerStore struct {
	customer *domain.Customer
}

func (f *fakeCustomerStore) Create(context.Context, *domain.Customer) error { return nil }

func (f *fakeCustomerStore) GetByCustomerID(_ context.Context, id string) (*domain.Customer, error) {
	if f.customer == nil || f.customer.CustomerID != id {
		return nil, store.ErrCustomerNotFound
	}
	clone := *f.customer
	return &clone, nil
}

func (f *fakeCustomerStore) ListSubscribedIDs(context.Context) ([]string, error) { return nil, nil }
func (f *fakeCustomerStore) SetSubscribed(context.Context, string, bool) error   { return nil }
func (f *fakeCustomerStore) SetPushToken(context.Context, string, string) error  { return nil }

// fakeInbox returns a canned feed.
type fakeInbox struct {
	items []reddit.InboxItem
	err   error
}

func (f *fakeInbox) FetchInbox(context.Context, string) ([]reddit.InboxItem, error) {
	return f.items, f.err
}

// sentPush records one delivered notification.
type sentPush struct {
	token, title, body string
	badge              int
}

type fakePush struct {
	sent []sentPush
	err  error
}

func (f *fakePush) Send(_ context.Context, token, title, body string, badge int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentPush{token, title, body, badge})
	return nil
}

func checkInboxFixture() (*fakeAccountStore, *fakeCustomerStore, *fakeInbox, *fakePush, *CheckInboxHandler) {
	token := "ExponentPushToken[abc]"
	accounts := &fakeAccountStore{
		account: &domain.WatchedAccount{
			ID:         7,
			CustomerID: "cus_1",
			Username:   "nightowl",
			Session:    "reddit_session=s3cret",
		},
	}
	customers := &fakeCustomerStore{
		customer: &domain.Customer{
			CustomerID:   "cus_1",
			IsSubscribed: true,
			PushToken:    &token,
		},
	}
	inbox := &fakeInbox{}
	push := &fakePush{}
	handler := NewCheckInboxHandler(accounts, customers, inbox, push, setupTestLogger())
	return accounts, customers, inbox, push, handler
}

func payloadFor(t *testing.T, accountID int64) json.RawMessage {
	t.Helper()
	p, err := json.Marshal(CheckInboxPayload{AccountID: accountID})
	require.NoError(t, err)
	return p
}

func TestCheckInboxHandler_SendsNotificationsForNewItems(t *testing.T) {
	accounts, _, inbox, push, handler := checkInboxFixture()
	inbox.items = []reddit.InboxItem{
		{ID: "m3", Kind: reddit.KindMessage, Author: "alice", Subject: "hey", Text: "are you around?", Unread: true},
		{ID: "m2", Kind: reddit.KindCommentReply, Author: "bob", PostTitle: "Go question", Text: "nice answer", Unread: true},
		{ID: "m1", Kind: reddit.KindMessage, Author: "carol", Subject: "old", Text: "seen already", Unread: false},
	}

	err := handler.Execute(context.Background(), payloadFor(t, 7))
	require.NoError(t, err)

	require.Len(t, push.sent, 2)
	assert.Equal(t, "Message from alice", push.sent[0].title)
	assert.Equal(t, "are you around?", push.sent[0].body)
	assert.Equal(t, 2, push.sent[0].badge)
	assert.Equal(t, "bob in Go question", push.sent[1].title)

	// Newest item becomes the high-water mark.
	assert.Equal(t, int64(7), accounts.recordedID)
	assert.Equal(t, "m3", accounts.recordedMsgID)
	assert.Empty(t, accounts.checkedIDs)
}

func TestCheckInboxHandler_CutsFeedAtLastMessage(t *testing.T) {
	accounts, _, inbox, push, handler := checkInboxFixture()
	last := "m2"
	accounts.account.LastMessageID = &last
	inbox.items = []reddit.InboxItem{
		{ID: "m3", Kind: reddit.KindMessage, Author: "alice", Subject: "new", Unread: true},
		{ID: "m2", Kind: reddit.KindMessage, Author: "bob", Subject: "notified before", Unread: true},
		{ID: "m1", Kind: reddit.KindMessage, Author: "carol", Subject: "ancient", Unread: true},
	}

	err := handler.Execute(context.Background(), payloadFor(t, 7))
	require.NoError(t, err)

	require.Len(t, push.sent, 1)
	assert.Equal(t, "Message from alice", push.sent[0].title)
	assert.Equal(t, "m3", accounts.recordedMsgID)
}

func TestCheckInboxHandler_NothingNewOnlyTouchesCheckTime(t *testing.T) {
	accounts, _, inbox, push, handler := checkInboxFixture()
	inbox.items = []reddit.InboxItem{
		{ID: "m1", Kind: reddit.KindMessage, Author: "carol", Subject: "old", Unread: false},
	}

	err := handler.Execute(context.Background(), payloadFor(t, 7))
	require.NoError(t, err)

	assert.Empty(t, push.sent)
	assert.Equal(t, []int64{7}, accounts.checkedIDs)
	assert.Empty(t, accounts.recordedMsgID)
}

func TestNotificationContent(t *testing.T) {
	title, body := notificationContent(reddit.InboxItem{
		Kind: reddit.KindMessage, Author: "alice", Subject: "hey", Text: "hello"})
	assert.Equal(t, "Message from alice", title, "message titles carry the sender, not the subject")
	assert.Equal(t, "hello", body)

	title, body = notificationContent(reddit.InboxItem{
		Kind: reddit.KindCommentReply, Author: "bob", PostTitle: "Go question", Text: "nice"})
	assert.Equal(t, "bob in Go question", title)
	assert.Equal(t, "nice", body)
}

func TestCheckInboxHandler_MissingAccountFails(t *testing.T) {
	_, _, _, _, handler := checkInboxFixture()

	err := handler.Execute(context.Background(), payloadFor(t, 999))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestCheckInboxHandler_MissingPushTokenFails(t *testing.T) {
	_, customers, inbox, _, handler := checkInboxFixture()
	customers.customer.PushToken = nil
	inbox.items = []reddit.InboxItem{
		{ID: "m1", Kind: reddit.KindMessage, Author: "alice", Subject: "hey", Unread: true},
	}

	err := handler.Execute(context.Background(), payloadFor(t, 7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push token not found")
}

func TestCheckInboxHandler_FetchErrorPropagates(t *testing.T) {
	_, _, inbox, _, handler := checkInboxFixture()
	inbox.err = errors.New("reddit is down")

	err := handler.Execute(context.Background(), payloadFor(t, 7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reddit is down")
}

func TestCheckInboxHandler_BadPayloadFails(t *testing.T) {
	_, _, _, _, handler := checkInboxFixture()

	err := handler.Execute(context.Background(), json.RawMessage(`{"account_id":`))
	require.Error(t, err)
}
