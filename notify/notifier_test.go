package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"freshdock/notify"
	"freshdock/notify/mocks"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestNotifierDeliversQueuedMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)

	first := notify.Message{To: []string{"receiving@metro.test"}, Subject: "New delivery advice"}
	second := notify.Message{To: []string{"grower@sunny.test"}, Subject: "Delivery advice received"}

	gomock.InOrder(
		mailer.EXPECT().Send(gomock.Any(), first).Return(errors.New("relay refused")),
		mailer.EXPECT().Send(gomock.Any(), second).Return(nil),
	)

	n := notify.NewNotifier(mailer, 1, 8, zap.NewNop())
	n.Enqueue(first)
	n.Enqueue(notify.Message{To: []string{""}, Subject: "nobody"})
	n.Enqueue(second)
	n.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n.Shutdown(ctx)
	assert.NoError(t, ctx.Err())
}

func TestNotifierDropsWhenQueueIsFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	n := notify.NewNotifier(mailer, 1, 1, zap.NewNop())
	n.Enqueue(notify.Message{To: []string{"a@metro.test"}})
	n.Enqueue(notify.Message{To: []string{"b@metro.test"}})
	n.Start(context.Background())
	n.Shutdown(context.Background())
}

func TestLogMailerNeverFails(t *testing.T) {
	m := notify.NewLogMailer(zap.NewNop())
	assert.NoError(t, m.Send(context.Background(), notify.Message{To: []string{"x@y.test"}, Subject: "hi"}))
}
