package transport

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/go-geocom/internal/instrumenttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig creates a Config with a short timeout suitable for tests.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	cfg, err := NewConfig(append([]Option{WithTimeout(200 * time.Millisecond)}, opts...)...)
	require.NoError(t, err)

	return cfg
}

// newTestTransport creates a stream transport connected to a fake instrument.
func newTestTransport(t *testing.T, h instrumenttest.Handler, opts ...Option) (Transport, *instrumenttest.Fake) {
	t.Helper()

	fake, conn := instrumenttest.New(t, h)
	tr := NewStream(conn, newTestConfig(t, opts...))
	t.Cleanup(func() { _ = tr.Close() })

	return tr, fake
}

// ===========================================================================
// Exchange
// ===========================================================================

func TestExchange_Success(t *testing.T) {
	tr, fake := newTestTransport(t, instrumenttest.Reply("%R1P,0,0:0"))

	answer, err := tr.Exchange(context.Background(), "%R1Q,0:")
	require.NoError(t, err)
	assert.Equal(t, "%R1P,0,0:0", answer)
	assert.Equal(t, []string{"%R1Q,0:"}, fake.Commands())

	m := tr.Metrics()
	assert.EqualValues(t, 1, m.SendCount.Load())
	assert.EqualValues(t, 1, m.ReceiveCount.Load())
	assert.EqualValues(t, len("%R1Q,0:\r\n"), m.BytesSent.Load())
}

func TestSend_TerminatorAppendedOnce(t *testing.T) {
	tr, fake := newTestTransport(t, nil)

	require.NoError(t, tr.Send(context.Background(), "a\r\n"))
	require.NoError(t, tr.Send(context.Background(), "b"))

	assert.EqualValues(t, 6, tr.Metrics().BytesSent.Load())
	assert.Eventually(t, func() bool { return fake.Count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fake.Commands())
}

func TestSend_RejectsEmbeddedTerminator(t *testing.T) {
	tr, fake := newTestTransport(t, instrumenttest.Reply("?"))

	_, err := tr.Exchange(context.Background(), "b\r\nc")
	require.ErrorIs(t, err, ErrInvalidPayload)
	assert.Zero(t, tr.Metrics().BytesSent.Load())

	answer, err := tr.Exchange(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "?", answer)
	assert.Equal(t, []string{"b"}, fake.Commands())
}

func TestReceive_Timeout(t *testing.T) {
	tr, _ := newTestTransport(t, nil)

	start := time.Now()
	answer, err := tr.Exchange(context.Background(), "GET/M/WI32")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, answer)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.EqualValues(t, 1, tr.Metrics().TimeoutCount.Load())
}

func TestReceive_ContextDeadlineWins(t *testing.T) {
	tr, _ := newTestTransport(t, nil, WithTimeout(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := tr.Receive(ctx)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReceive_ContextCanceled(t *testing.T) {
	tr, _ := newTestTransport(t, nil, WithTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := tr.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestReceive_SplitAnswer(t *testing.T) {
	tr, fake := newTestTransport(t, nil)

	fake.SendRaw("%R1P,0,0")
	fake.SendRaw(":0\r")
	fake.SendRaw("\n")

	answer, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "%R1P,0,0:0", answer)
}

func TestReceive_TwoAnswersInOneRead(t *testing.T) {
	tr, fake := newTestTransport(t, nil)

	fake.SendRaw("first\r\nsecond\r\n")

	first, err := tr.Receive(context.Background())
	require.NoError(t, err)
	second, err := tr.Receive(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "first", first)
	assert.Equal(t, "second", second)
}

func TestReceive_LateAnswerStaysBuffered(t *testing.T) {
	tr, fake := newTestTransport(t, nil)

	_, err := tr.Exchange(context.Background(), "GET/M/WI330")
	require.ErrorIs(t, err, ErrTimeout)

	// the answer to the timed out request arrives afterwards and is the
	// next thing read from the channel
	fake.SendLine("late")
	answer, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", answer)
}

func TestReceive_CustomTerminator(t *testing.T) {
	tr, fake := newTestTransport(t, nil, WithAnswerTerminator("\n"))

	fake.SendRaw("?\n")
	answer, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "?", answer)
}

// ===========================================================================
// ExchangeMany
// ===========================================================================

func TestExchangeMany_AllSucceed(t *testing.T) {
	tr, _ := newTestTransport(t, instrumenttest.Script(map[string][]string{
		"a": {"1"},
		"b": {"2"},
	}))

	answers, err := tr.ExchangeMany(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, answers)
}

func TestExchangeMany_StopsAtFirstFailure(t *testing.T) {
	tr, fake := newTestTransport(t, instrumenttest.Script(map[string][]string{
		"a": {"1"},
		"c": {"3"},
	}))

	answers, err := tr.ExchangeMany(context.Background(), []string{"a", "b", "c"})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []string{"1"}, answers)
	assert.Equal(t, []string{"a", "b"}, fake.Commands())
}

// ===========================================================================
// Open / Close
// ===========================================================================

func TestClose_Idempotent(t *testing.T) {
	tr, _ := newTestTransport(t, nil)

	require.True(t, tr.IsOpen())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsOpen())
}

func TestClosed_SendReceiveFail(t *testing.T) {
	tr, _ := newTestTransport(t, nil)
	require.NoError(t, tr.Close())

	require.ErrorIs(t, tr.Send(context.Background(), "a"), ErrChannelClosed)
	_, err := tr.Receive(context.Background())
	require.ErrorIs(t, err, ErrChannelClosed)
	_, err = tr.Exchange(context.Background(), "a")
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestStream_CannotReopen(t *testing.T) {
	tr, _ := newTestTransport(t, nil)
	require.NoError(t, tr.Close())

	require.ErrorIs(t, tr.Open(), ErrChannelClosed)
}

func TestClose_UnblocksReceive(t *testing.T) {
	tr, _ := newTestTransport(t, nil, WithTimeout(5*time.Second))

	time.AfterFunc(50*time.Millisecond, func() { _ = tr.Close() })

	_, err := tr.Receive(context.Background())
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestNewSerial_StartsClosed(t *testing.T) {
	tr := NewSerial("/dev/does-not-exist", newTestConfig(t))

	assert.False(t, tr.IsOpen())
	require.ErrorIs(t, tr.Send(context.Background(), "a"), ErrChannelClosed)
	require.Error(t, tr.Open())
	assert.False(t, tr.IsOpen())
}
