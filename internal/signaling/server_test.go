package signaling

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type relayed struct {
	from    string
	payload json.RawMessage
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signaling message")
	}
	var zero T
	return zero
}

func TestServer_RelayBetweenHostAndController(t *testing.T) {
	srv := NewServer(nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()
	ctx := context.Background()

	hostRegistered := make(chan struct{}, 1)
	offers := make(chan relayed, 1)
	candidates := make(chan relayed, 1)
	host := NewClient(wsURL(ts), "host-a", RoleHost, Handler{
		OnRegistered:   func() { hostRegistered <- struct{}{} },
		OnOffer:        func(from string, p json.RawMessage) { offers <- relayed{from, p} },
		OnICECandidate: func(from string, p json.RawMessage) { candidates <- relayed{from, p} },
	}, nil)
	require.NoError(t, host.Connect(ctx))
	recv(t, hostRegistered)
	assert.Equal(t, []HostInfo{{ID: "host-a", Online: true}}, srv.Hosts())

	ctrlRegistered := make(chan struct{}, 1)
	hostLists := make(chan []HostInfo, 4)
	answers := make(chan relayed, 1)
	errs := make(chan string, 1)
	gone := make(chan string, 1)
	ctrl := NewClient(wsURL(ts), "controller-b", RoleController, Handler{
		OnRegistered:       func() { ctrlRegistered <- struct{}{} },
		OnHostsUpdated:     func(h []HostInfo) { hostLists <- h },
		OnAnswer:           func(from string, p json.RawMessage) { answers <- relayed{from, p} },
		OnError:            func(msg string) { errs <- msg },
		OnHostDisconnected: func(id string) { gone <- id },
	}, nil)
	require.NoError(t, ctrl.Connect(ctx))
	defer ctrl.Close()
	recv(t, ctrlRegistered)

	require.NoError(t, ctrl.RequestHostList())
	assert.Equal(t, []HostInfo{{ID: "host-a", Online: true}}, recv(t, hostLists))

	require.NoError(t, ctrl.SendOffer("host-a", json.RawMessage(`{"sdp":"o"}`)))
	got := recv(t, offers)
	assert.Equal(t, "controller-b", got.from)
	assert.JSONEq(t, `{"sdp":"o"}`, string(got.payload))

	require.NoError(t, host.SendAnswer("controller-b", json.RawMessage(`{"sdp":"a"}`)))
	got = recv(t, answers)
	assert.Equal(t, "host-a", got.from)

	require.NoError(t, ctrl.SendICECandidate("host-a", json.RawMessage(`{"candidate":"c"}`)))
	assert.Equal(t, "controller-b", recv(t, candidates).from)

	require.NoError(t, ctrl.SendOffer("host-missing", json.RawMessage(`{}`)))
	assert.Contains(t, recv(t, errs), "unknown target")

	host.Close()
	assert.Equal(t, "host-a", recv(t, gone))
	require.Eventually(t, func() bool { return len(srv.Hosts()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_RegistrationRules(t *testing.T) {
	srv := NewServer(nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Message {
		var m Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	m := read()
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, "register first", m.Msg)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRegister, ID: "x"}))
	assert.Equal(t, TypeError, read().Type)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRegister, ID: "x", Role: RoleHost}))
	assert.Equal(t, TypeRegistered, read().Type)

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	assert.Equal(t, TypePong, read().Type)

	// a second connection cannot take the same id
	other, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.WriteJSON(Message{Type: TypeRegister, ID: "x", Role: RoleController}))
	var dup Message
	require.NoError(t, other.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, other.ReadJSON(&dup))
	assert.Equal(t, "id already in use", dup.Msg)
}

func TestClient_SendBeforeConnect(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", "c", RoleController, Handler{}, nil)
	assert.ErrorIs(t, c.SendOffer("h", nil), ErrNotConnected)
	c.Close()
}
