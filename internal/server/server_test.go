package server_test

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/otlabs/collabtext/internal/auth"
	"github.com/otlabs/collabtext/internal/broadcast"
	"github.com/otlabs/collabtext/internal/server"
	"github.com/otlabs/collabtext/internal/transport"
	"github.com/otlabs/collabtext/ot"
)

func dial(t *testing.T, base, token string) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(base)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/collab/ws"
	u.RawQuery = "token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) transport.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, buf, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := transport.Decode(buf)
	require.NoError(t, err)
	return env
}

func writeOperation(t *testing.T, conn *websocket.Conn, revision int, op *ot.WrappedOperation) {
	t.Helper()
	env := transport.Envelope{Type: transport.MsgOperation, Revision: revision, Op: op}
	b, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

// TestTwoSubscribersConverge dials two clients into the same document and
// checks that an operation submitted by one is relayed, in transformed
// form, to the other.
func TestTwoSubscribersConverge(t *testing.T) {
	authn := auth.New("test-secret")
	hubs := server.NewHubSet(nil, nil, nil, zerolog.Nop())
	router := server.NewRouter(hubs, authn, zerolog.Nop())
	srv := httptest.NewServer(router)
	defer srv.Close()
	base := strings.Replace(srv.URL, "http", "ws", 1)

	aliceToken, err := authn.Sign("alice", "doc-1", time.Minute)
	require.NoError(t, err)
	bobToken, err := authn.Sign("bob", "doc-1", time.Minute)
	require.NoError(t, err)

	alice := dial(t, base, aliceToken)
	defer alice.Close()
	bob := dial(t, base, bobToken)
	defer bob.Close()

	aliceInit := readEnvelope(t, alice)
	require.Equal(t, transport.MsgInit, aliceInit.Type)
	require.Equal(t, "", aliceInit.Content)
	require.Equal(t, 0, aliceInit.Revision)

	bobInit := readEnvelope(t, bob)
	require.Equal(t, transport.MsgInit, bobInit.Type)

	op := ot.Wrap(ot.New().Insert("hi"), ot.Meta{"clientId": "alice"})
	writeOperation(t, alice, 0, op)

	ack := readEnvelope(t, alice)
	require.Equal(t, transport.MsgAck, ack.Type)
	require.Equal(t, 1, ack.Revision)

	broadcast := readEnvelope(t, bob)
	require.Equal(t, transport.MsgOperation, broadcast.Type)
	require.Equal(t, "alice", broadcast.ClientID)
	require.Equal(t, 1, broadcast.Revision)

	applied, err := broadcast.Op.Apply("")
	require.NoError(t, err)
	require.Equal(t, "hi", applied)
}

// TestHandleRemoteEventAdvancesHistoryAndBroadcasts simulates an operation
// accepted by another otctl instance arriving over Kafka: it checks both
// that an already-subscribed client is notified, and that the document's
// own history actually advanced (not just the broadcast), by having a
// second client subscribe afterward and checking its init envelope.
func TestHandleRemoteEventAdvancesHistoryAndBroadcasts(t *testing.T) {
	authn := auth.New("test-secret")
	hubs := server.NewHubSet(nil, nil, nil, zerolog.Nop())
	router := server.NewRouter(hubs, authn, zerolog.Nop())
	srv := httptest.NewServer(router)
	defer srv.Close()
	base := strings.Replace(srv.URL, "http", "ws", 1)

	aliceToken, err := authn.Sign("alice", "doc-remote", time.Minute)
	require.NoError(t, err)
	alice := dial(t, base, aliceToken)
	defer alice.Close()

	aliceInit := readEnvelope(t, alice)
	require.Equal(t, transport.MsgInit, aliceInit.Type)
	require.Equal(t, 0, aliceInit.Revision)

	remoteOp := ot.Wrap(ot.New().Insert("remote"), ot.Meta{"clientId": "dave"})
	opJSON, err := json.Marshal(remoteOp)
	require.NoError(t, err)
	hubs.HandleRemoteEvent(broadcast.OpEvent{
		DocID:    "doc-remote",
		ClientID: "dave",
		EntryID:  "remote-entry-1",
		Revision: 1,
		OpJSON:   opJSON,
	})

	relayed := readEnvelope(t, alice)
	require.Equal(t, transport.MsgOperation, relayed.Type)
	require.Equal(t, "dave", relayed.ClientID)
	require.Equal(t, 1, relayed.Revision)

	bobToken, err := authn.Sign("bob", "doc-remote", time.Minute)
	require.NoError(t, err)
	bob := dial(t, base, bobToken)
	defer bob.Close()

	bobInit := readEnvelope(t, bob)
	require.Equal(t, transport.MsgInit, bobInit.Type)
	require.Equal(t, 1, bobInit.Revision)
	require.Equal(t, "remote", bobInit.Content)
}

func TestUnauthenticatedConnectionRejected(t *testing.T) {
	authn := auth.New("test-secret")
	hubs := server.NewHubSet(nil, nil, nil, zerolog.Nop())
	router := server.NewRouter(hubs, authn, zerolog.Nop())
	srv := httptest.NewServer(router)
	defer srv.Close()
	base := strings.Replace(srv.URL, "http", "ws", 1)

	u, err := url.Parse(base)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/collab/ws"

	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)
}
