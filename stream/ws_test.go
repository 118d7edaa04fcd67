package stream

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"minibot.dev/countdown/state"
)

func TestWebsocketPushesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	env.store.Publish(state.Snapshot{
		Remaining: 9 * time.Second,
		Phase:     state.FinalTen,
		Running:   true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.server.hub.Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var got countdownResponse
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Remaining != 9 || got.Phase != "final_ten" || !got.Running {
		t.Errorf("pushed snapshot = %+v", got)
	}
}
