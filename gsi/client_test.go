package gsi

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-geocom/internal/instrumenttest"
	"github.com/arloliu/go-geocom/session"
	"github.com/arloliu/go-geocom/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	confCmd = regexp.MustCompile(`^CONF/\d+$`)
	setCmd  = regexp.MustCompile(`^SET/\d+/\d+$`)
	getCmd  = regexp.MustCompile(`^GET/[MIC]/WI\d+$`)
	putCmd  = regexp.MustCompile(`^PUT/\*?[0-9.]{6}[+-](?:[a-zA-Z0-9]{8}|[a-zA-Z0-9]{16}) $`)
)

// level behaves like a DNA level: it echoes CONF queries with 0000, accepts
// every SET and PUT except index 0, answers GET with a word carrying "1" and
// rejects anything else with @W427.
type level struct {
	mu       sync.Mutex
	width    Width
	override map[string][]string
}

func (l *level) answer(cmd string, lines ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.override == nil {
		l.override = make(map[string][]string)
	}
	l.override[cmd] = lines
}

func (l *level) handle(cmd string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if answer, ok := l.override[cmd]; ok {
		return answer
	}
	if l.width == 0 {
		l.width = GSI8
	}

	switch {
	case cmd == "CONF/137":
		if l.width == GSI16 {
			return []string{"0137/0001"}
		}
		return []string{"0137/0000"}
	case confCmd.MatchString(cmd) && cmd != "CONF/0":
		param := strings.TrimPrefix(cmd, "CONF/")
		return []string{strings.Repeat("0", 4-len(param)) + param + "/0000"}
	case setCmd.MatchString(cmd) && cmd != "SET/0/0":
		if cmd == "SET/137/1" {
			l.width = GSI16
		} else if cmd == "SET/137/0" {
			l.width = GSI8
		}
		return []string{"?"}
	case getCmd.MatchString(cmd) && !strings.HasSuffix(cmd, "/WI0"):
		wi, _ := strconv.Atoi(cmd[strings.LastIndex(cmd, "WI")+2:])
		word, err := BuildWord(wi, "1", l.width)
		if err != nil {
			return []string{string(TokenUnknown)}
		}
		return []string{word}
	case putCmd.MatchString(cmd) && !strings.HasPrefix(cmd, "PUT/0."):
		return []string{"?"}
	case cmd == "a" || cmd == "b" || cmd == "c" || cmd == "BEEP/0" || cmd == "BEEP/1" || cmd == "BEEP/2":
		return []string{"?"}
	}

	return []string{string(TokenInvalidCommand)}
}

func newTestClient(t *testing.T, h instrumenttest.Handler, opts ...ClientOption) (*Client, *instrumenttest.Fake) {
	t.Helper()

	fake, conn := instrumenttest.New(t, h)
	cfg, err := transport.NewConfig(transport.WithTimeout(150 * time.Millisecond))
	require.NoError(t, err)

	opts = append([]ClientOption{WithBackoff(10 * time.Millisecond)}, opts...)
	c, err := NewClient(transport.NewStream(conn, cfg), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, fake
}

func openLevel(t *testing.T, l *level, opts ...ClientOption) (*Client, *instrumenttest.Fake) {
	t.Helper()

	c, fake := newTestClient(t, l.handle, opts...)
	require.NoError(t, c.Open(context.Background()))

	return c, fake
}

func faulty(string) (int, error) {
	return 0, errors.New("faulty decoder")
}

func TestClient_Open(t *testing.T) {
	c, fake := openLevel(t, &level{width: GSI16})
	assert.Equal(t, GSI16, c.Width())
	assert.Equal(t, []string{"a", "CONF/137"}, fake.Commands())
	assert.Equal(t, session.StateSynchronized, c.Session().State())
}

func TestClient_OpenFailsAfterTwoAttempts(t *testing.T) {
	c, fake := newTestClient(t, nil)

	err := c.Open(context.Background())
	require.ErrorIs(t, err, session.ErrConnection)
	assert.Equal(t, "session: could not establish connection to instrument", err.Error())
	assert.Equal(t, []string{"a", "a"}, fake.Commands())
}

func TestClient_OpenRejectsWrongAck(t *testing.T) {
	c, fake := newTestClient(t, instrumenttest.Reply("@W427"), WithMaxAttempts(3))

	require.ErrorIs(t, c.Open(context.Background()), session.ErrConnection)
	assert.Equal(t, 3, fake.Count())
}

func TestClient_GetDistance(t *testing.T) {
	l := &level{override: map[string][]string{"GET/M/WI32": {"*110006+00001234 "}}}
	c, _ := openLevel(t, l)

	resp := Get(context.Background(), c, ModeMeasure, 32, DecodeDistance)
	require.True(t, resp.OK())
	assert.InDelta(t, 1.234, resp.Value, 1e-12)
	assert.Empty(t, resp.Comment)
	assert.Equal(t, "GET/M/WI32", resp.Cmd)
	assert.Equal(t, "Distance", resp.Desc)

	resp = c.GetDistance(context.Background())
	require.True(t, resp.OK())
	assert.InDelta(t, 1.234, resp.Value, 1e-12)
}

func TestClient_Request(t *testing.T) {
	c, _ := openLevel(t, &level{})

	resp := c.Request(context.Background(), "d")
	assert.False(t, resp.Value)
	assert.Equal(t, CommentInstrument, resp.Comment)

	resp = c.Wakeup(context.Background())
	assert.True(t, resp.OK())
	assert.Equal(t, "Wakeup", resp.Desc)

	for _, kind := range []BeepKind{BeepShort, BeepLong, BeepAlarm} {
		resp = c.Beep(context.Background(), kind)
		assert.True(t, resp.OK())
		assert.Equal(t, "BEEP/"+strconv.Itoa(int(kind)), resp.Cmd)
	}
	assert.True(t, c.Clear(context.Background()).OK())
	assert.True(t, c.Shutdown(context.Background()).OK())
}

func TestClient_Set(t *testing.T) {
	c, _ := openLevel(t, &level{})

	resp := c.Set(context.Background(), 0, 0)
	assert.False(t, resp.Value)
	assert.False(t, resp.OK())
	assert.Equal(t, CommentInstrument, resp.Comment)
	assert.Equal(t, string(TokenInvalidCommand), resp.Raw)
	tok, ok := resp.ErrorToken()
	require.True(t, ok)
	assert.Equal(t, TokenInvalidCommand, tok)

	resp = c.Set(context.Background(), 1, 1)
	assert.True(t, resp.OK())
	assert.Equal(t, "SET/1/1", resp.Cmd)
}

func TestClient_Conf(t *testing.T) {
	c, _ := openLevel(t, &level{})
	ctx := context.Background()

	resp := Conf(ctx, c, 0, DecodeInt)
	assert.False(t, resp.Valid)
	assert.Equal(t, CommentInstrument, resp.Comment)
	assert.Equal(t, string(TokenInvalidCommand), resp.Raw)

	resp = Conf(ctx, c, 1, faulty)
	assert.False(t, resp.Valid)
	assert.Equal(t, CommentParse, resp.Comment)

	resp = Conf(ctx, c, 1, DecodeInt)
	assert.True(t, resp.OK())
	assert.Equal(t, "0001/0000", resp.Raw)
	assert.Equal(t, 0, resp.Value)
}

func TestClient_ConfDecoderPanic(t *testing.T) {
	c, _ := openLevel(t, &level{})

	resp := Conf(context.Background(), c, 1, func(string) (int, error) { panic("boom") })
	assert.False(t, resp.Valid)
	assert.Equal(t, CommentParse, resp.Comment)
}

func TestClient_Put(t *testing.T) {
	c, _ := openLevel(t, &level{})

	resp := c.Put(context.Background(), 0, "0.....+00000000 ")
	assert.False(t, resp.Value)
	assert.Equal(t, CommentInstrument, resp.Comment)
	assert.Equal(t, string(TokenInvalidCommand), resp.Raw)

	resp = c.Put(context.Background(), 1, "1.....+00000001 ")
	assert.True(t, resp.OK())
}

func TestClient_Get(t *testing.T) {
	c, _ := openLevel(t, &level{})
	ctx := context.Background()
	gsiValue := func(v string) (int, error) { return strconv.Atoi(stripWord(v)[6:]) }

	resp := Get(ctx, c, ModeInstant, 0, gsiValue)
	assert.False(t, resp.Valid)
	assert.Equal(t, CommentInstrument, resp.Comment)
	assert.Equal(t, string(TokenInvalidCommand), resp.Raw)

	resp = Get(ctx, c, ModeInstant, 1, faulty)
	assert.False(t, resp.Valid)
	assert.Equal(t, CommentParse, resp.Comment)

	resp = Get(ctx, c, ModeInstant, 1, gsiValue)
	assert.True(t, resp.OK())
	assert.Equal(t, 1, resp.Value)
}

func TestClient_TransportFailure(t *testing.T) {
	t.Run("closed", func(t *testing.T) {
		c, _ := openLevel(t, &level{})
		require.NoError(t, c.Close())

		set := c.Set(context.Background(), 1, 1)
		assert.False(t, set.Value)
		assert.Equal(t, CommentExchange, set.Comment)
		assert.Equal(t, string(TokenUnknown), set.Raw)

		put := c.Put(context.Background(), 1, "1.....+00000001 ")
		assert.Equal(t, CommentExchange, put.Comment)

		conf := Conf(context.Background(), c, 1, DecodeInt)
		assert.Equal(t, CommentExchange, conf.Comment)
		assert.False(t, conf.Valid)

		get := c.GetReading(context.Background())
		assert.Equal(t, CommentExchange, get.Comment)
		assert.Equal(t, string(TokenUnknown), get.Raw)
	})

	t.Run("timeout", func(t *testing.T) {
		l := &level{override: map[string][]string{"GET/M/WI330": nil}}
		c, _ := openLevel(t, l)

		resp := c.GetReading(context.Background())
		assert.False(t, resp.Valid)
		assert.Equal(t, CommentExchange, resp.Comment)
		assert.Equal(t, string(TokenUnknown), resp.Raw)
	})
}

func TestClient_Width(t *testing.T) {
	l := &level{}
	c, fake := openLevel(t, l)
	ctx := context.Background()
	require.Equal(t, GSI8, c.Width())

	require.True(t, c.SetPointID(ctx, "A1").OK())
	assert.Equal(t, "PUT/11....+000000A1 ", fake.Commands()[fake.Count()-1])

	require.True(t, c.SetFormat(ctx, GSI16).OK())
	assert.Equal(t, GSI16, c.Width())

	require.True(t, c.SetPointID(ctx, "A1").OK())
	assert.Equal(t, "PUT/*11....+00000000000000A1 ", fake.Commands()[fake.Count()-1])

	text := c.GetPointID(ctx)
	require.True(t, text.OK())
	assert.Equal(t, "1", text.Value)
}

func TestClient_WidthUnchangedOnFailure(t *testing.T) {
	l := &level{override: map[string][]string{"SET/137/1": {string(TokenBusy)}}}
	c, _ := openLevel(t, l)

	resp := c.SetFormat(context.Background(), GSI16)
	assert.False(t, resp.OK())
	assert.Equal(t, GSI8, c.Width())

	l.answer("CONF/137", "0137/0009")
	format := c.GetFormat(context.Background())
	assert.Equal(t, CommentParse, format.Comment)
	assert.Equal(t, GSI8, c.Width())
}

func TestClient_DNAWrappers(t *testing.T) {
	l := &level{override: map[string][]string{
		"CONF/90":     {"0090/0004"},
		"CONF/95":     {"0095/0002"},
		"CONF/41":     {"0041/0007"},
		"GET/I/WI560": {"560..6+00123456 "},
		"GET/I/WI561": {"561..6+00072500 "},
		"GET/I/WI562": {"562...+00002024 "},
		"GET/I/WI17":  {"17....+25072024 "},
		"GET/I/WI19":  {"19....+07251230 "},
		"GET/I/WI12":  {"12....+00123456 "},
		"GET/M/WI95":  {"95..16+00225000 "},
	}}
	c, fake := openLevel(t, l)
	ctx := context.Background()

	battery := c.GetBattery(ctx)
	require.True(t, battery.OK())
	assert.Equal(t, 4, battery.Value)
	assert.Equal(t, "Battery level", battery.Desc)

	autoOff := c.GetAutoOff(ctx)
	require.True(t, autoOff.OK())
	assert.Equal(t, AutoOffSleep, autoOff.Value)

	unit := c.GetDistanceUnit(ctx)
	assert.Equal(t, CommentParse, unit.Comment)

	clock := c.GetTime(ctx)
	require.True(t, clock.OK())
	assert.Equal(t, Clock{Hour: 12, Minute: 34, Second: 56}, clock.Value)

	date := c.GetDate(ctx)
	require.True(t, date.OK())
	assert.Equal(t, MonthDay{Month: time.July, Day: 25}, date.Value)

	year := c.GetYear(ctx)
	require.True(t, year.OK())
	assert.Equal(t, 2024, year.Value)

	full := c.GetFullDate(ctx)
	require.True(t, full.OK())
	assert.Equal(t, 2024, full.Value.Year())

	dayTime := c.GetDayTime(ctx)
	require.True(t, dayTime.OK())
	assert.Equal(t, 30, dayTime.Value.Minute)

	serial := c.GetSerialNumber(ctx)
	require.True(t, serial.OK())
	assert.Equal(t, "123456", serial.Value)

	temp := c.GetTemperature(ctx)
	require.True(t, temp.OK())
	assert.InDelta(t, 22.5, temp.Value, 1e-12)

	require.True(t, c.SetTime(ctx, Clock{Hour: 8, Minute: 5, Second: 9}).OK())
	assert.Equal(t, "PUT/560..6+00080509 ", fake.Commands()[fake.Count()-1])

	require.True(t, c.SetDate(ctx, time.March, 4).OK())
	assert.Equal(t, "PUT/561..6+00030400 ", fake.Commands()[fake.Count()-1])

	require.True(t, c.SetYear(ctx, 2025).OK())
	assert.Equal(t, "PUT/562...+00002025 ", fake.Commands()[fake.Count()-1])

	require.True(t, c.SetBeep(ctx, BeepLoud).OK())
	assert.Equal(t, "SET/30/2", fake.Commands()[fake.Count()-1])
}

func TestClient_ResyncDiscardsStaleWord(t *testing.T) {
	l := &level{}
	c, fake := openLevel(t, l, WithResync(true))

	l.answer("GET/M/WI330")
	l.answer("CONF/137", "330008+00123456 ", "0137/0000")

	resp := c.GetReading(context.Background())
	assert.Equal(t, CommentExchange, resp.Comment)
	assert.Equal(t, session.StateSynchronized, c.Session().State())
	assert.Equal(t, "CONF/137", fake.Commands()[fake.Count()-1])

	l.answer("GET/M/WI330", "330006+00000010 ")
	resp = c.GetReading(context.Background())
	require.True(t, resp.OK())
	assert.InDelta(t, 0.001, resp.Value, 1e-12)
}

func TestClient_InvalidOptions(t *testing.T) {
	_, conn := instrumenttest.New(t, nil)
	cfg, err := transport.NewConfig()
	require.NoError(t, err)
	tr := transport.NewStream(conn, cfg)

	_, err = NewClient(tr, WithWidth(12))
	assert.Error(t, err)
	_, err = NewClient(tr, WithLogger(nil))
	assert.Error(t, err)
	_, err = NewClient(tr, WithResyncRounds(0))
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("M")
	require.NoError(t, err)
	assert.Equal(t, ModeMeasure, m)

	_, err = ParseMode("X")
	assert.Error(t, err)
}
