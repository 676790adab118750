package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/speeddraw/internal/logger"
)

// MJPEGOutput streams frames as Motion JPEG over HTTP so a render can be
// watched in a browser while it is being composited.
type MJPEGOutput struct {
	config  Config
	running bool
	mu      sync.RWMutex

	// Latest encoded frame, sent to clients as soon as they connect
	frameMu    sync.RWMutex
	latest     []byte
	lastIndex  int
	lastUpdate time.Time

	// Connected clients
	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	// Stats
	frameCount atomic.Uint64
	startTime  time.Time
}

// NewMJPEGOutput creates a new MJPEG stream output
func NewMJPEGOutput(config Config) *MJPEGOutput {
	return &MJPEGOutput{
		config:  config,
		clients: make(map[chan []byte]struct{}),
	}
}

// Start initializes the MJPEG output
// Note: The HTTP handler is registered separately via GetHTTPHandler()
func (m *MJPEGOutput) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG output already running")
	}

	m.running = true
	m.startTime = time.Now()
	m.frameCount.Store(0)

	logger.WithComponent("preview").Info().Msgf("[MJPEG] Output started: %dx%d @ %d FPS", m.config.Width, m.config.Height, m.config.FPS)
	return nil
}

// Stop cleanly shuts down the output
func (m *MJPEGOutput) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	m.running = false

	// Close all client connections
	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("preview").Info().Msgf("[MJPEG] Output stopped after %v frames", m.frameCount.Load())
	return nil
}

// WriteFrame sends a frame to all connected clients. Frames are only
// JPEG-encoded while at least one client is watching, at most FPS times per
// second of wall time.
func (m *MJPEGOutput) WriteFrame(index int, frame *image.RGBA) error {
	if !m.IsRunning() {
		return fmt.Errorf("MJPEG output not running")
	}
	m.frameCount.Add(1)

	m.clientsMu.RLock()
	watching := len(m.clients)
	m.clientsMu.RUnlock()
	if watching == 0 {
		return nil
	}

	if m.config.FPS > 0 {
		m.frameMu.RLock()
		since := time.Since(m.lastUpdate)
		m.frameMu.RUnlock()
		if since < time.Second/time.Duration(m.config.FPS) {
			return nil
		}
	}

	// Encode frame as JPEG
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	m.frameMu.Lock()
	m.latest = jpegData
	m.lastIndex = index
	m.lastUpdate = time.Now()
	m.frameMu.Unlock()

	// Broadcast to all clients
	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- jpegData:
			// Sent successfully
		default:
			// Client is slow, skip this frame
		}
	}
	m.clientsMu.RUnlock()

	return nil
}

// Name returns the output type name
func (m *MJPEGOutput) Name() string {
	return "MJPEG HTTP Stream"
}

// IsRunning returns true if the output is active
func (m *MJPEGOutput) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Stats returns the number of frames seen, the index of the last streamed
// frame and the number of connected clients.
func (m *MJPEGOutput) Stats() (frames uint64, lastIndex int, clients int) {
	m.frameMu.RLock()
	lastIndex = m.lastIndex
	m.frameMu.RUnlock()
	m.clientsMu.RLock()
	clients = len(m.clients)
	m.clientsMu.RUnlock()
	return m.frameCount.Load(), lastIndex, clients
}

// GetHTTPHandler returns an http.Handler for the MJPEG stream
// Mount this at /stream or similar endpoint
func (m *MJPEGOutput) GetHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set headers for MJPEG stream
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Connection", "close")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		// Create channel for this client
		frameChan := make(chan []byte, 2) // Buffer 2 frames

		m.frameMu.RLock()
		if m.latest != nil {
			frameChan <- m.latest
		}
		m.frameMu.RUnlock()

		// Register client
		m.clientsMu.Lock()
		m.clients[frameChan] = struct{}{}
		clientCount := len(m.clients)
		m.clientsMu.Unlock()

		logger.WithComponent("preview").Info().Msgf("[MJPEG] New client connected (total: %d)", clientCount)

		// Cleanup on disconnect
		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, frameChan)
			clientCount := len(m.clients)
			m.clientsMu.Unlock()
			logger.WithComponent("preview").Info().Msgf("[MJPEG] Client disconnected (remaining: %d)", clientCount)
		}()

		// Stream frames to client
		for {
			var jpegData []byte
			var ok bool
			select {
			case <-r.Context().Done():
				return
			case jpegData, ok = <-frameChan:
				if !ok {
					return
				}
			}

			// Write multipart boundary
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}

			// Write JPEG data
			if _, err := w.Write(jpegData); err != nil {
				return
			}

			// Write closing boundary
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}

			// Flush to client
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

// GetViewerHandler returns an HTTP handler that shows the stream with a
// progress bar fed by the /api/progress websocket
func (m *MJPEGOutput) GetViewerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(viewerHTML))
	}
}

const viewerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>speeddraw preview</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            background: #111;
            color: #ccc;
            font-family: system-ui, -apple-system, sans-serif;
            display: flex;
            flex-direction: column;
            align-items: center;
            min-height: 100vh;
        }
        img {
            width: 100vw;
            height: calc(100vh - 40px);
            object-fit: contain;
            display: block;
            background: #000;
        }
        .status {
            width: 100%;
            height: 40px;
            display: flex;
            align-items: center;
            gap: 12px;
            padding: 0 16px;
            font-size: 13px;
        }
        .bar {
            flex: 1;
            height: 6px;
            background: #333;
            border-radius: 3px;
            overflow: hidden;
        }
        .fill {
            height: 100%;
            width: 0;
            background: #4682b4;
            transition: width 0.2s ease;
        }
    </style>
</head>
<body>
    <img src="/stream" alt="speeddraw live preview">
    <div class="status">
        <span id="phase">waiting</span>
        <div class="bar"><div class="fill" id="fill"></div></div>
        <span id="count"></span>
    </div>
    <script>
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + '/api/progress');
        ws.onmessage = (msg) => {
            const e = JSON.parse(msg.data);
            document.getElementById('phase').textContent = e.phase;
            document.getElementById('count').textContent = e.current + '/' + e.total;
            document.getElementById('fill').style.width = (e.fraction * 100).toFixed(1) + '%';
        };
    </script>
</body>
</html>`
