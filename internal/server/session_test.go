package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aulaboard/backend/internal/notify"
)

func dialSocket(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	socketURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(socketURL, nil)
	if err != nil {
		t.Fatalf("dial socket: %v", err)
	}
	return conn
}

func TestSocketRejectsMissingToken(t *testing.T) {
	stack := newTestStack(t)
	server := httptest.NewServer(stack.handler)
	defer server.Close()

	socketURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications"
	_, response, err := websocket.DefaultDialer.Dial(socketURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure without token")
	}
	if response == nil || response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %v", response)
	}
}

func TestSocketRejectsInvalidToken(t *testing.T) {
	stack := newTestStack(t)
	server := httptest.NewServer(stack.handler)
	defer server.Close()

	socketURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications?token=garbage"
	_, response, err := websocket.DefaultDialer.Dial(socketURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure with a bad token")
	}
	if response == nil || response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %v", response)
	}
}

func TestSocketReceivesPublishedNotification(t *testing.T) {
	stack := newTestStack(t)
	server := httptest.NewServer(stack.handler)
	defer server.Close()

	account, token := stack.registerAccount(t, "ana", "student")
	conn := dialSocket(t, server, token)
	defer conn.Close()

	payload, err := json.Marshal(notify.WirePayload{
		ID:      7,
		Type:    "card_created",
		Title:   "New card",
		Message: "m",
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	// The handler subscribes right after the upgrade completes; keep
	// publishing until the frame arrives so the test does not race it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				stack.bus.Publish(notify.UserGroup(account.ID), payload)
			}
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	var envelope struct {
		Type string             `json:"type"`
		Data notify.WirePayload `json:"data"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if envelope.Type != "notification" {
		t.Fatalf("frame type = %q", envelope.Type)
	}
	if envelope.Data.ID != 7 || envelope.Data.Type != "card_created" {
		t.Fatalf("frame data = %+v", envelope.Data)
	}
}

func TestSocketMarkReadUpdatesNotification(t *testing.T) {
	stack := newTestStack(t)
	server := httptest.NewServer(stack.handler)
	defer server.Close()

	account, token := stack.registerAccount(t, "ana", "student")
	notification := notify.Notification{RecipientID: account.ID, Type: "card_created", Title: "New card", Message: "m"}
	if err := stack.db.Create(&notification).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	conn := dialSocket(t, server, token)
	defer conn.Close()

	request, err := json.Marshal(map[string]any{
		"type":            "mark_read",
		"notification_id": notification.ID,
	})
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, request); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var stored notify.Notification
		if err := stack.db.First(&stored, notification.ID).Error; err != nil {
			t.Fatalf("load notification: %v", err)
		}
		if stored.Read {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("notification never marked read")
}
