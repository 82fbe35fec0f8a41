package preview

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const readWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the preview page and the viewer websocket.
type Server struct {
	hub  *Hub
	addr string
	log  zerolog.Logger
}

// NewServer creates a preview server for hub listening on addr.
func NewServer(hub *Hub, addr string, log zerolog.Logger) *Server {
	return &Server{hub: hub, addr: addr, log: log.With().Str("component", "preview").Logger()}
}

// Handler returns the HTTP routes: "/" for the page and "/ws" for viewers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleViewer)
	return mux
}

// ListenAndServe runs until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("preview listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>docscan preview</title>
<style>
body { margin: 0; background: #111; color: #eee; font: 14px sans-serif; }
#wrap { position: relative; display: inline-block; }
#frame, #overlay { position: absolute; left: 0; top: 0; }
#status { padding: 8px; }
</style>
</head>
<body>
<div id="status">connecting</div>
<div id="wrap"><img id="frame"><canvas id="overlay"></canvas></div>
<script>
const canvas = document.getElementById('overlay');
const ctx = canvas.getContext('2d');
const frame = document.getElementById('frame');
const status = document.getElementById('status');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === 'frame') {
    frame.src = 'data:' + msg.mime_type + ';base64,' + msg.image;
  } else if (msg.type === 'feedback') {
    const fb = msg.feedback;
    status.textContent = fb.status + (fb.classification ? ' (' + fb.classification + ')' : '');
  } else if (msg.type === 'polygon') {
    canvas.width = msg.width;
    canvas.height = msg.height;
    frame.style.width = msg.width + 'px';
    frame.style.height = msg.height + 'px';
    ctx.clearRect(0, 0, canvas.width, canvas.height);
    if (msg.opacity <= 0 || !msg.points || msg.points.length < 3) return;
    ctx.globalAlpha = msg.opacity;
    ctx.beginPath();
    msg.points.forEach((p, i) => i ? ctx.lineTo(p.x, p.y) : ctx.moveTo(p.x, p.y));
    ctx.closePath();
    ctx.fillStyle = msg.fill;
    ctx.globalAlpha = msg.opacity * 0.25;
    ctx.fill();
    ctx.globalAlpha = msg.opacity;
    ctx.strokeStyle = msg.stroke;
    ctx.lineWidth = 3;
    ctx.stroke();
  }
};
ws.onclose = () => { status.textContent = 'disconnected'; };
</script>
</body>
</html>
`
