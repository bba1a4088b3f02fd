package main

import (
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type server struct {
	mux       *http.ServeMux
	mqttc     mqtt.Client
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	broadcast chan []byte
}

func newServer(broker, topic string) (*server, error) {
	s := &server{
		mux:       http.NewServeMux(),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
	}

	opts := mqtt.NewClientOptions().AddBroker(broker).SetAutoReconnect(true)
	s.mqttc = mqtt.NewClient(opts)
	if token := s.mqttc.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case s.broadcast <- msg.Payload():
		default:
			// Slow consumers drop updates; the next sample replaces them.
		}
	}
	if token := s.mqttc.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/ws", s.handleWebSocket)
	go s.handleBroadcast()
	return s, nil
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *server) handleBroadcast() {
	for msg := range s.broadcast {
		var dead []*websocket.Conn
		s.clientsMu.RLock()
		for conn := range s.clients {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				dead = append(dead, conn)
			}
		}
		s.clientsMu.RUnlock()
		for _, conn := range dead {
			conn.Close()
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
		}
	}
}

func (s *server) Close() {
	s.mqttc.Disconnect(250)
}
