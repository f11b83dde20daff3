package mail_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/pkg/config"
	"github.com/vibhor121/mastersunion/pkg/util"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestComposer(t *testing.T) {
	c, err := mail.NewComposer()
	require.NoError(t, err)

	t.Run("lead assigned", func(t *testing.T) {
		msg, err := c.LeadAssigned("rep@example.com", "Ada Lovelace", "Rep One")
		require.NoError(t, err)
		assert.Equal(t, "rep@example.com", msg.To)
		assert.Equal(t, "New Lead Assigned", msg.Subject)
		assert.Equal(t, "Hi Rep One, A new lead Ada Lovelace has been assigned to you.", msg.Text)
		assert.Contains(t, msg.HTML, "<strong>Ada Lovelace</strong>")
		assert.Contains(t, msg.HTML, "CRM Team")
	})

	t.Run("status changed", func(t *testing.T) {
		msg, err := c.LeadStatusChanged("rep@example.com", "Ada Lovelace", "NEW", "QUALIFIED")
		require.NoError(t, err)
		assert.Equal(t, "Lead Status Updated", msg.Subject)
		assert.Equal(t, "Lead Ada Lovelace status changed from NEW to QUALIFIED.", msg.Text)
		assert.Contains(t, msg.HTML, "QUALIFIED")
	})

	t.Run("reminder", func(t *testing.T) {
		when := time.Date(2024, 5, 6, 14, 30, 0, 0, time.UTC)
		msg, err := c.ActivityReminder("rep@example.com", "Demo call", "Ada Lovelace", when)
		require.NoError(t, err)
		assert.Equal(t, "Activity Reminder", msg.Subject)
		assert.Contains(t, msg.Text, "Demo call for Ada Lovelace at Mon, 06 May 2024 14:30 UTC")
	})

	t.Run("html is escaped", func(t *testing.T) {
		msg, err := c.LeadAssigned("rep@example.com", "<script>x</script>", "Rep")
		require.NoError(t, err)
		assert.NotContains(t, msg.HTML, "<script>")
	})
}

func TestSMTPSender_Disabled(t *testing.T) {
	sender := mail.NewSMTPSender(config.SMTPConfig{}, util.DiscardLogger())

	err := sender.Send(context.Background(), mail.Message{To: "a@example.com", Subject: "s"})
	assert.ErrorIs(t, err, mail.ErrNotConfigured)

	err = sender.Send(context.Background(), mail.Message{Subject: "s"})
	assert.Error(t, err)
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()
	msg := mail.Message{To: "a@example.com", Subject: "s", Text: "t"}

	ok := mail.Deliver(ctx, &recordingSender{}, msg, util.DiscardLogger())
	assert.Equal(t, mail.Result{Success: true}, ok)

	failed := mail.Deliver(ctx, &recordingSender{err: errors.New("relay down")}, msg, util.DiscardLogger())
	assert.False(t, failed.Success)
	assert.Equal(t, "relay down", failed.Error)
}

func TestAsyncQueue(t *testing.T) {
	sender := &recordingSender{}
	q := mail.NewAsyncQueue(sender, 2, 10, util.DiscardLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), mail.Message{To: "a@example.com", Subject: "s"}))
	}

	assert.Error(t, q.Enqueue(context.Background(), mail.Message{Subject: "no recipient"}))

	q.Close()
	assert.Equal(t, 5, sender.count())

	assert.ErrorIs(t, q.Enqueue(context.Background(), mail.Message{To: "a@example.com", Subject: "s"}), mail.ErrQueueFull)
	assert.NotPanics(t, q.Close)
}
