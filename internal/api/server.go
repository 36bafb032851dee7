package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/rulebot/internal/engine"
)

const maxTopK = 100

type Server struct {
	Engine   *engine.Engine
	Logger   *logrus.Entry
	Router   *http.ServeMux
	Throttle *ClientThrottle
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger.WithField("component", "api"),
		Router: http.NewServeMux(),
	}
	if eng.Config != nil && eng.Config.Server.Throttle.RequestsPerSecond > 0 {
		s.Throttle = NewClientThrottle(eng.Config.Server.Throttle, s.Logger.WithField("component", "throttle"))
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/search", s.handleSearch)
	s.Router.HandleFunc("/api/v1/topics", s.handleTopics)
	s.Router.HandleFunc("/api/v1/generate", s.handleGenerate)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
}

// Handler returns the router wrapped in the client throttle when one is configured.
func (s *Server) Handler() http.Handler {
	if s.Throttle == nil {
		return s.Router
	}
	return s.Throttle.Middleware(s.Router)
}

func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	if s.Throttle != nil {
		if err := s.Throttle.Start(); err != nil {
			return err
		}
		defer s.Throttle.Stop()
	}

	s.Logger.Infof("Starting API Server on %s", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return srv.ListenAndServe()
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type SearchResponse struct {
	Query     string             `json:"query"`
	QueryID   string             `json:"query_id"`
	Algorithm string             `json:"algorithm"`
	Results   []SearchResultView `json:"results"`
}

type SearchResultView struct {
	GUID     string  `json:"guid"`
	Score    float64 `json:"score"`
	Topic    string  `json:"topic"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
}

type TopicsResponse struct {
	Topics []string `json:"topics"`
}

type StatusResponse struct {
	Algorithm  string         `json:"algorithm"`
	Topic      string         `json:"topic"`
	DeckSize   int            `json:"deck_size"`
	Candidates int            `json:"candidates"`
	ParseMS    float64        `json:"parse_ms"`
	IndexMS    float64        `json:"index_ms"`
	Queries    int64          `json:"queries"`
	Uptime     string         `json:"uptime"`
	Throttle   *ThrottleStats `json:"throttle,omitempty"`
}

type GenerateResponse struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Handlers

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		s.jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	topK := s.defaultTopK()
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 0 || k > maxTopK {
			s.jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Parameter 'k' must be an integer between 0 and 100"})
			return
		}
		topK = k
	}

	// Execute Search
	result := s.Engine.Ask(query, topK)

	response := SearchResponse{
		Query:     query,
		QueryID:   result.QueryID,
		Algorithm: string(s.Engine.Retriever.Algorithm()),
		Results:   make([]SearchResultView, 0, len(result.Hits)),
	}

	for _, hit := range result.Hits {
		view := SearchResultView{
			GUID:     hit.GUID,
			Score:    hit.Score,
			Topic:    hit.Topic.Join(s.Engine.Parser.TopicSeparator),
			Question: hit.Preview,
		}
		if card, ok := s.Engine.Card(hit.GUID); ok {
			view.Answer = card.Answer
		}
		response.Results = append(response.Results, view)
	}

	s.jsonResponse(w, http.StatusOK, response)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	topics := s.Engine.Topics()
	resp := TopicsResponse{Topics: make([]string, len(topics))}
	for i, topic := range topics {
		resp.Topics[i] = topic.Join(s.Engine.Parser.TopicSeparator)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.Engine.Snapshot()

	resp := StatusResponse{
		Algorithm:  string(stats.Algorithm),
		Topic:      stats.Topic,
		DeckSize:   stats.DeckSize,
		Candidates: stats.Candidates,
		ParseMS:    stats.ParseMS,
		IndexMS:    stats.IndexMS,
		Queries:    stats.Queries,
		Uptime:     time.Since(stats.StartTime).Round(time.Second).String(),
	}
	if s.Throttle != nil {
		throttle := s.Throttle.Statistics()
		resp.Throttle = &throttle
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		s.jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Query 'q' is required"})
		return
	}

	answer, err := s.Engine.GenerateAnswer(r.Context(), query)
	if errors.Is(err, engine.ErrNoProvider) {
		s.jsonResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.Logger.WithError(err).Error("Answer generation failed")
		s.jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	s.jsonResponse(w, http.StatusOK, GenerateResponse{
		Query:  query,
		Answer: answer,
	})
}

func (s *Server) defaultTopK() int {
	if s.Engine.Config != nil && s.Engine.Config.Query.TopK > 0 {
		return s.Engine.Config.Query.TopK
	}
	return 1
}

func (s *Server) jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	writeJSON(s.Logger, w, code, payload)
}

// writeJSON falls back to a bare 500 when payload cannot be encoded.
func writeJSON(logger *logrus.Entry, w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).WithField("status", code).Error("Failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		response = []byte(`{"error":"failed to encode response"}`)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
	}
	if _, err := w.Write(response); err != nil {
		logger.WithError(err).Debug("Failed to write response")
	}
}
