package eventbus

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type stageDone struct {
	stage string
}

type other struct{}

func bufferedLogger(level logrus.Level) (*logrus.Entry, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return logrus.NewEntry(log), buf
}

func TestBus_DeliversToMatchingHandlersOnly(t *testing.T) {
	b := New(nil)
	var got []string
	b.Subscribe(func(e stageDone) { got = append(got, e.stage) })
	b.Subscribe(func(e other) { t.Error("should not be called") })

	b.Publish(stageDone{stage: "merge"})
	b.Publish(stageDone{stage: "normalize"})

	require.Equal(t, []string{"merge", "normalize"}, got)
	require.Equal(t, 2, b.SubscribersCount())
}

func TestBus_PublishLogsHandlerPanic(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	b := New(log)

	afterPanic := false
	b.Subscribe(func(e stageDone) { panic("boom") })
	b.Subscribe(func(e stageDone) { afterPanic = true })

	b.Publish(stageDone{stage: "sync"})

	require.True(t, afterPanic, "a panicking handler must not stop the others")
	require.True(t, strings.Contains(buf.String(), "panicked"), buf.String())
}

func TestBus_PublishE(t *testing.T) {
	b := New(nil)
	require.ErrorIs(t, b.PublishE(stageDone{}), ErrNoSubscribers)

	sentinel := errors.New("handler failed")
	b.Subscribe(func(e stageDone) error { return sentinel })
	b.Subscribe(func(e stageDone) error { return nil })
	b.Subscribe(func(e stageDone) (int, error) { return 0, nil })

	err := b.PublishE(stageDone{})
	require.ErrorIs(t, err, sentinel)
	require.ErrorIs(t, err, ErrInvalidHandlerReturn)
}

func TestBus_UnsubscribeAndClear(t *testing.T) {
	b := New(nil)
	h := func(e stageDone) {}
	b.Subscribe(h)
	b.Subscribe(func(e other) {})

	b.Unsubscribe(h)
	require.Equal(t, 1, b.SubscribersCount())

	b.Clear()
	require.Equal(t, 0, b.SubscribersCount())
}

func TestBus_SubscribeRejectsNonFunctions(t *testing.T) {
	require.Panics(t, func() { New(nil).Subscribe("nope") })
}

func TestMatchSignature(t *testing.T) {
	require.True(t, MatchSignature(func(e stageDone) {}, []any{stageDone{}}))
	require.False(t, MatchSignature(func(e stageDone) {}, []any{other{}}))
	require.False(t, MatchSignature(func(e stageDone) {}, []any{}))
	require.False(t, MatchSignature(func(e stageDone) {}, []any{stageDone{}, stageDone{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	require.True(t, MatchSignature(func(err error) {}, []any{nil}))
	require.False(t, MatchSignature(func(n int) {}, []any{nil}))
	require.False(t, MatchSignature("not a func", []any{}))
}
