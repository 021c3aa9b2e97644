package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveDuelWS upgrades the connection and wires it into the dispatcher.
// Room membership is established over the socket itself (create_room or
// join_room), not in the URL.
func serveDuelWS(cfg *Config, d *Dispatcher) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: upgrade from %s: %v", realIP(r), err)
			return
		}

		client := newClient(conn)

		logf(cfg, "SERVE: Websocket %s connected from %s", client.id, realIP(r))

		go client.writePump()
		client.readPump(d)
	}
}

// qrHandler generates a PNG QR code for a room's join URL so the second
// player can be pulled in from another phone.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../qr/:code; drop the "/qr" segment to get the join URL.
	path := strings.Replace(r.URL.Path, "/qr/", "/", 1)

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// registerDuelGame sets up routes so that:
//   - $path/ws        → the bidirectional event channel for all rooms
//   - $path/qr/:code  → PNG QR code for sharing a room's join URL
func registerDuelGame(cfg *Config, path string, mux *httprouter.Router) {
	prompts, err := loadPrompts()
	if err != nil {
		panic(err)
	}

	d := newDispatcher(cfg, newRegistry(), prompts)
	go d.run()
	d.startReaper()

	mux.GET(cfg.prefix+path+"/ws", serveDuelWS(cfg, d))

	mux.GET(cfg.prefix+path+"/qr/:code", qrHandler)
}
