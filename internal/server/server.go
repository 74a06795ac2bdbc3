package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"timed_quiz/internal/database"
	"timed_quiz/internal/metrics"
	"timed_quiz/internal/models"
	"timed_quiz/internal/quiz"
	"timed_quiz/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	ActionSelect  = "select"
	ActionNext    = "next"
	ActionRestart = "restart"

	MessageState       = "state"
	MessageLeaderboard = "leaderboard"
	MessageError       = "error"
)

// Action is a player input sent over the socket.
type Action struct {
	Action string `json:"action"`
	Option *int   `json:"option,omitempty"`
}

// Message is pushed to the player.
type Message struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type Options struct {
	ActionRate  float64
	ActionBurst int
}

type Server struct {
	Router      *mux.Router
	quizService services.QuizServiceInterface
	log         *zap.Logger
	opts        Options
	clients     map[string]map[*client]bool
	mutex       sync.Mutex
}

func NewServer(quizService services.QuizServiceInterface, log *zap.Logger, opts Options) *Server {
	if opts.ActionRate <= 0 {
		opts.ActionRate = 10
	}
	if opts.ActionBurst <= 0 {
		opts.ActionBurst = 20
	}
	s := &Server{
		Router:      mux.NewRouter(),
		quizService: quizService,
		log:         log,
		opts:        opts,
		clients:     make(map[string]map[*client]bool),
	}
	s.Router.Use(metrics.Middleware)
	s.Router.HandleFunc("/ws", s.handleWebSocket)
	s.Router.HandleFunc("/quizzes/{quizID}/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	s.Router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	s.Router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	quizService.OnLeaderboardUpdate(func(quizID string, leaderboard *models.PaginatedLeaderboard) {
		s.broadcast(quizID, Message{Type: MessageLeaderboard, Data: leaderboard})
	})
	return s
}

type client struct {
	conn    *websocket.Conn
	send    chan Message
	limiter *rate.Limiter
	log     *zap.Logger
}

// push never blocks: it runs under the session lock.
func (c *client) push(msg Message) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("dropping message for slow client", zap.String("type", msg.Type))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quiz_id")
	userID := r.URL.Query().Get("user_id")
	if quizID == "" || userID == "" {
		http.Error(w, "Missing quiz_id or user_id", http.StatusBadRequest)
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		username = userID
	}

	log := s.log.With(zap.String("quiz_id", quizID), zap.String("user_id", userID))
	c := &client{
		send:    make(chan Message, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(s.opts.ActionRate), s.opts.ActionBurst),
		log:     log,
	}

	runner, err := s.quizService.StartSession(r.Context(), quizID, models.User{ID: userID, Username: username}, quiz.Observer{
		OnChange: func(v models.SessionView) {
			c.push(Message{Type: MessageState, Data: v})
		},
	})
	if err != nil {
		if errors.Is(err, database.ErrQuizNotFound) {
			http.Error(w, "Unknown quiz", http.StatusNotFound)
			return
		}
		log.Error("starting session failed", zap.Error(err))
		http.Error(w, "Could not start quiz", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		runner.Close()
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c.conn = conn
	go c.writePump()

	s.mutex.Lock()
	if s.clients[quizID] == nil {
		s.clients[quizID] = make(map[*client]bool)
	}
	s.clients[quizID][c] = true
	s.mutex.Unlock()
	metrics.ActiveSessions.Inc()
	log.Info("player connected")

	defer func() {
		runner.Close()
		s.mutex.Lock()
		delete(s.clients[quizID], c)
		if len(s.clients[quizID]) == 0 {
			delete(s.clients, quizID)
		}
		s.mutex.Unlock()
		close(c.send)
		metrics.ActiveSessions.Dec()
		log.Info("player disconnected")
	}()

	if err := runner.Start(); err != nil {
		log.Error("starting countdown failed", zap.Error(err))
		return
	}

	// Send initial leaderboard
	leaderboard, err := s.quizService.GetLeaderboard(r.Context(), quizID, 1, 0)
	if err != nil {
		log.Warn("loading leaderboard failed", zap.Error(err))
	} else {
		c.push(Message{Type: MessageLeaderboard, Data: leaderboard})
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		var action Action
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if !c.limiter.Allow() {
			c.push(Message{Type: MessageError, Error: "rate limit exceeded"})
			continue
		}
		if err := dispatch(runner, action); err != nil {
			c.push(Message{Type: MessageError, Error: err.Error()})
		}
	}
}

func dispatch(runner *quiz.Runner, action Action) error {
	switch action.Action {
	case ActionSelect:
		if action.Option == nil {
			return errors.New("select needs an option")
		}
		_, err := runner.Select(*action.Option)
		return err
	case ActionNext:
		return runner.Next()
	case ActionRestart:
		return runner.Restart()
	default:
		return errors.New("unknown action " + strconv.Quote(action.Action))
	}
}

func (s *Server) broadcast(quizID string, msg Message) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for c := range s.clients[quizID] {
		c.push(msg)
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizID"]
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	leaderboard, err := s.quizService.GetLeaderboard(r.Context(), quizID, page, pageSize)
	if err != nil {
		s.log.Error("loading leaderboard failed", zap.String("quiz_id", quizID), zap.Error(err))
		http.Error(w, "Could not load leaderboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(leaderboard); err != nil {
		s.log.Warn("writing leaderboard failed", zap.Error(err))
	}
}
