package notification

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/bg"
)

type memoryRepository struct {
	created []Notification
	err     error
}

func (m *memoryRepository) Create(ctx context.Context, n *Notification) error {
	if m.err != nil {
		return m.err
	}
	n.ID = uuid.Must(uuid.NewV4())
	m.created = append(m.created, *n)
	return nil
}

func (m *memoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	var out []Notification
	for _, n := range m.created {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memoryRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	for i := range m.created {
		if m.created[i].ID == id && m.created[i].UserID == userID {
			m.created[i].Read = true
			return nil
		}
	}
	return apperror.ErrNotFound
}

func (m *memoryRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	list, _ := m.ListByUser(ctx, userID, true)
	return len(list), nil
}

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMailer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

type staticRecipients struct{}

func (staticRecipients) EmailFor(ctx context.Context, userID uuid.UUID) (string, string, error) {
	return "buyer@example.com", "Buyer", nil
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(ctx context.Context, n Notification) error {
		calls++
		return errors.New("smtp down")
	})
	d := NewDispatcher(sink, bg.Sync{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		d.Send(ctx, Notification{UserID: uuid.Must(uuid.NewV4()), Title: "Payment verified"})
	})
	assert.Equal(t, 1, calls)
}

func TestDispatcher_DetachesFromCallerCancellation(t *testing.T) {
	var deliveredErr error
	sink := SinkFunc(func(ctx context.Context, n Notification) error {
		deliveredErr = ctx.Err()
		return nil
	})
	d := NewDispatcher(sink, bg.Sync{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Send(ctx, Notification{})

	assert.NoError(t, deliveredErr)
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	repo := &memoryRepository{}
	failing := SinkFunc(func(ctx context.Context, n Notification) error { return errors.New("boom") })

	err := Fanout{failing, StoreSink{Repo: repo}}.Notify(context.Background(), Notification{Title: "hello"})

	assert.EqualError(t, err, "boom")
	require.Len(t, repo.created, 1)
	assert.Equal(t, "hello", repo.created[0].Title)
}

func TestEmailSink_Notify(t *testing.T) {
	m := &fakeMailer{}
	sink := &EmailSink{from: "shop@example.com", mailer: m, recipients: staticRecipients{}}

	err := sink.Notify(context.Background(), Notification{Title: "Payment rejected", Message: "first payment rejected: blurry <screenshot>"})
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	assert.Equal(t, []string{"Payment rejected"}, m.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{`"Buyer" <buyer@example.com>`}, m.sent[0].GetHeader("To"))

	var buf bytes.Buffer
	_, err = m.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "blurry &lt;screenshot&gt;")
}

func TestService_SendMessage(t *testing.T) {
	repo := &memoryRepository{}
	var forwarded []Notification
	d := NewDispatcher(SinkFunc(func(ctx context.Context, n Notification) error {
		forwarded = append(forwarded, n)
		return nil
	}), bg.Sync{})
	svc := NewService(repo, d)
	userID := uuid.Must(uuid.NewV4())

	_, err := svc.SendMessage(context.Background(), userID, "  ", "body", SeverityInfo)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.SendMessage(context.Background(), userID, "Hi", "body", "loud")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	n, err := svc.SendMessage(context.Background(), userID, "Shipment update", "Your cargo has landed", "")
	require.NoError(t, err)
	assert.Equal(t, CategoryMessage, n.Category)
	assert.Equal(t, SeverityInfo, n.Severity)
	assert.Len(t, repo.created, 1)
	assert.Len(t, forwarded, 1)

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkRead(context.Background(), userID, n.ID))
	count, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.ErrorIs(t, svc.MarkRead(context.Background(), uuid.Must(uuid.NewV4()), n.ID), apperror.ErrNotFound)
}
