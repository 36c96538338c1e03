package server

import (
	"encoding/json"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/unoengine/uno-server/pkg/identity"
	"github.com/unoengine/uno-server/pkg/registry"
	"github.com/unoengine/uno-server/pkg/room"
	"github.com/unoengine/uno-server/pkg/stats"
	"github.com/unoengine/uno-server/pkg/transport"
)

func newTestEnv(t *testing.T) (*Server, *httptest.Server, *identity.DevProvider) {
	t.Helper()
	reg := registry.New(rand.New(rand.NewSource(1)))
	idp := identity.NewDevProvider()
	sink := stats.NewMemorySink()
	s := New(slog.Disabled, reg, idp, sink, rand.New(rand.NewSource(2)), time.Millisecond, 2*time.Millisecond)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv, idp
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + srv.URL[len("http"):] + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn, timeout time.Duration) transport.Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(timeout)))
	var f transport.Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func sendFrame(t *testing.T, ws *websocket.Conn, ft transport.FrameType, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(transport.Frame{Type: ft, Data: data}))
}

func TestHealthzOK(t *testing.T) {
	_, srv, _ := newTestEnv(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
}

func TestCreateRoomEndpoint(t *testing.T) {
	_, srv, _ := newTestEnv(t)

	body := `{"name":"Friday Night","pointsToWin":200}`
	resp, err := srv.Client().Post(srv.URL+"/rooms", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var out struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Code, 6)
}

func TestFullJoinAndStartFlow(t *testing.T) {
	s, srv, idp := newTestEnv(t)

	code, err := s.CreateRoom("Game Night", false, room.DefaultConfiguration())
	require.NoError(t, err)

	tok1, _, err := idp.Issue("Alice")
	require.NoError(t, err)
	tok2, _, err := idp.Issue("Bob")
	require.NoError(t, err)

	ws1 := dial(t, srv)
	sendFrame(t, ws1, transport.FrameAuthenticate, transport.AuthenticatePayload{Token: tok1})
	sendFrame(t, ws1, transport.FrameSubscribe, transport.SubscribePayload{RoomCode: code})
	sendFrame(t, ws1, transport.FrameJoinRoom, transport.JoinRoomPayload{Code: code})

	joined := readFrame(t, ws1, 2*time.Second)
	require.Equal(t, transport.FrameType("PlayerJoined"), joined.Type)
	// The first human to join is also made leader.
	leader := readFrame(t, ws1, 2*time.Second)
	require.Equal(t, transport.FrameType("LeadershipTransferred"), leader.Type)

	ws2 := dial(t, srv)
	sendFrame(t, ws2, transport.FrameAuthenticate, transport.AuthenticatePayload{Token: tok2})
	sendFrame(t, ws2, transport.FrameSubscribe, transport.SubscribePayload{RoomCode: code})
	sendFrame(t, ws2, transport.FrameJoinRoom, transport.JoinRoomPayload{Code: code})

	// Drain ws1's view of Bob joining.
	bobJoined := readFrame(t, ws1, 2*time.Second)
	require.Equal(t, transport.FrameType("PlayerJoined"), bobJoined.Type)

	sendFrame(t, ws1, transport.FrameStartGame, struct{}{})

	// One of the next frames on ws1 should be GameStarted.
	deadline := time.Now().Add(2 * time.Second)
	sawGameStarted := false
	for time.Now().Before(deadline) && !sawGameStarted {
		f := readFrame(t, ws1, 2*time.Second)
		if f.Type == transport.FrameType("GameStarted") {
			sawGameStarted = true
		}
	}
	require.True(t, sawGameStarted, "expected a GameStarted frame after StartGame")
}

func TestAuthenticateRequiredBeforeSubscribe(t *testing.T) {
	_, srv, _ := newTestEnv(t)
	ws := dial(t, srv)
	sendFrame(t, ws, transport.FrameSubscribe, transport.SubscribePayload{RoomCode: "ABC123"})

	f := readFrame(t, ws, 2*time.Second)
	require.Equal(t, transport.FrameError, f.Type)
}
