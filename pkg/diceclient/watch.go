package diceclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/dice-chess/pkg/dicedto"
)

const (
	watchPingInterval = 30 * time.Second
	maxReconnects     = 5
)

// Watch streams state updates of one game into onState until the game ends,
// ctx is cancelled or the connection cannot be re-established.
// A dropped connection is redialled with backoff; the server resends the
// current state on every connect, so no update is lost for good.
func (c *Client) Watch(ctx context.Context, id string, onState func(*dicedto.GameState)) error {
	target := c.watchURL + "/ws/games/" + url.PathEscape(id)
	failures := 0
	for {
		ended, err := c.watchOnce(ctx, target, onState)
		if ended {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var closeErr websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusPolicyViolation {
			return fmt.Errorf("watch refused: %s", closeErr.Reason)
		}
		failures++
		if failures > maxReconnects {
			return fmt.Errorf("watch %s: %w", id, err)
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(failures)); sleepErr != nil {
			return sleepErr
		}
	}
}

func (c *Client) watchOnce(ctx context.Context, target string, onState func(*dicedto.GameState)) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, target, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	cancel()
	if err != nil {
		return false, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	connCtx, stop := context.WithCancel(ctx)
	defer stop()
	go pingLoop(connCtx, conn)

	for {
		var st dicedto.GameState
		if err := wsjson.Read(connCtx, conn, &st); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return true, nil
			}
			return false, err
		}
		onState(&st)
		if st.Status == "ended" {
			return true, nil
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(watchPingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
