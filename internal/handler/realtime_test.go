package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/domain/models/room"
)

// liveConnections reads the registry gauge from the test registry
func liveConnections(reg *prometheus.Registry) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == "pathway_realtime_connections" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func dialRoom(t *testing.T, server *httptest.Server, roomID, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/rooms/" + roomID + "/ws?access_token=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) room.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event room.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestRealtimeDeliversRoomEvents(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.handler)
	defer server.Close()

	var rm room.Room
	s.do(t, mentee, http.MethodPost, "/api/rooms", map[string]any{"participant_ids": []string{mentee, mentor}}, &rm)

	mentorConn := dialRoom(t, server, rm.ID, mentor)
	require.Eventually(t, func() bool { return liveConnections(s.reg) == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := s.do(t, mentee, http.MethodPost, "/api/rooms/"+rm.ID+"/messages", map[string]string{"content": "Are we still on?"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	event := readEvent(t, mentorConn)
	assert.Equal(t, room.EventNewMessage, event.Type)
	assert.Equal(t, rm.ID, event.RoomID)

	// typing frames from the mentee's socket reach the mentor
	menteeConn := dialRoom(t, server, rm.ID, mentee)
	require.Eventually(t, func() bool { return liveConnections(s.reg) == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, menteeConn.WriteJSON(room.InboundFrame{Type: room.FrameTypingStart}))
	event = readEvent(t, mentorConn)
	assert.Equal(t, room.EventUserTyping, event.Type)

	require.NoError(t, menteeConn.WriteJSON(room.InboundFrame{Type: room.FrameTypingStop}))
	event = readEvent(t, mentorConn)
	assert.Equal(t, room.EventUserStoppedTyping, event.Type)

	menteeConn.Close()
	require.Eventually(t, func() bool { return liveConnections(s.reg) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeRejectsNonMembers(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.handler)
	defer server.Close()

	var rm room.Room
	s.do(t, mentee, http.MethodPost, "/api/rooms", map[string]any{"participant_ids": []string{mentee, mentor}}, &rm)

	conn := dialRoom(t, server, rm.ID, outsider)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Zero(t, liveConnections(s.reg))
}

func TestRealtimeDeactivationClosesSockets(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.handler)
	defer server.Close()

	var rm room.Room
	s.do(t, mentee, http.MethodPost, "/api/rooms", map[string]any{"participant_ids": []string{mentee, mentor}}, &rm)

	menteeConn := dialRoom(t, server, rm.ID, mentee)
	require.Eventually(t, func() bool { return liveConnections(s.reg) == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := s.do(t, mentor, http.MethodDelete, "/api/rooms/"+rm.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	event := readEvent(t, menteeConn)
	assert.Equal(t, room.EventRoomDeactivated, event.Type)

	_, _, err := menteeConn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
