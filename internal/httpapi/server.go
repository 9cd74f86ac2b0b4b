package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/park285/echecs/internal/fen"
	"github.com/park285/echecs/internal/lobby"
	"github.com/park285/echecs/internal/msgcat"
	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/render"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/internal/savegame"
	"github.com/park285/echecs/internal/session"
	"github.com/park285/echecs/pkg/echecsdto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

const maxJSONBodyBytes int64 = 1 << 16

// Server exposes the session manager over HTTP. Routing is gorilla/mux;
// fasthttp serves it through the net/http adaptor.
type Server struct {
	sessions *session.Manager
	renderer render.BoardRenderer
	msgs     *msgcat.Catalog
	saves    savegame.Store
	lobbies  *lobby.Manager

	srvMu sync.Mutex
	srv   *fasthttp.Server
}

func New(sessions *session.Manager, renderer render.BoardRenderer, msgs *msgcat.Catalog) *Server {
	if renderer == nil {
		renderer = render.NewSVGBoardRenderer()
	}
	if msgs == nil {
		msgs = msgcat.MustDefault()
	}
	return &Server{sessions: sessions, renderer: renderer, msgs: msgs}
}

// AttachSaves enables the named save routes. Without a store they answer
// 404.
func (s *Server) AttachSaves(store savegame.Store) { s.saves = store }

// AttachLobbies enables the /lobbies routes.
func (s *Server) AttachLobbies(m *lobby.Manager) { s.lobbies = m }

// Routes is the full net/http handler, CORS included.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/games", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/moves", s.handleMove).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/undo", s.handleUndo).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/board.png", s.handleBoardPNG).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/fen", s.handleFEN).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/fen", s.handleLoadFEN).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}/save", s.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}/load", s.handleLoad).Methods(http.MethodPost)
	r.HandleFunc("/saves", s.handleListSaves).Methods(http.MethodGet)
	r.HandleFunc("/players/{id}/games", s.handlePlayerGames).Methods(http.MethodGet)
	r.HandleFunc("/lobbies", s.handleMakeLobby).Methods(http.MethodPost)
	r.HandleFunc("/lobbies", s.handleListLobbies).Methods(http.MethodGet)
	r.HandleFunc("/lobbies/{code}", s.handleGetLobby).Methods(http.MethodGet)
	r.HandleFunc("/lobbies/{code}/join", s.handleJoinLobby).Methods(http.MethodPost)

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
	)(r)
}

// Handler adapts Routes for fasthttp.
func (s *Server) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(s.Routes())
}

func (s *Server) server() *fasthttp.Server {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	if s.srv == nil {
		s.srv = &fasthttp.Server{
			Handler:            s.Handler(),
			Name:               "echecs",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       10 * time.Second,
			IdleTimeout:        60 * time.Second,
			MaxRequestBodySize: int(maxJSONBodyBytes),
		}
	}
	return s.srv
}

// Serve blocks serving ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	obslog.L().Info("http_listen", zap.String("addr", ln.Addr().String()))
	return s.server().Serve(ln)
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server().ShutdownWithContext(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		obslog.L().Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func statusFor(code string) int {
	switch code {
	case echecsdto.CodeInvalidPosition, echecsdto.CodeInvalidFEN, echecsdto.CodeBadRequest:
		return http.StatusBadRequest
	case echecsdto.CodeMoveRejected, echecsdto.CodeNoPiece, echecsdto.CodeWrongColor:
		return http.StatusUnprocessableEntity
	case echecsdto.CodeNotYourSeat:
		return http.StatusForbidden
	case echecsdto.CodeNotFound, echecsdto.CodeSaveNotFound, echecsdto.CodeLobbyNotFound:
		return http.StatusNotFound
	case echecsdto.CodeMalformedSave:
		return http.StatusUnprocessableEntity
	case echecsdto.CodeConflict, echecsdto.CodeNothingToUndo, echecsdto.CodeGameOver,
		echecsdto.CodeLobbyStarted, echecsdto.CodeOwnLobby, echecsdto.CodeAlreadyHosting:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error, input string) {
	de := s.msgs.DomainError(err, input)
	status := statusFor(de.Code)
	if status == http.StatusInternalServerError {
		obslog.L().Error("http_internal_error", zap.Error(err))
	}
	writeJSON(w, status, echecsdto.ErrorResponse{Error: de})
}

func badRequest(msg string) error {
	return echecsdto.DomainError{Code: echecsdto.CodeBadRequest, Message: msg}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return badRequest(fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}

func (s *Server) writeState(w http.ResponseWriter, status int, st *session.State) {
	dto, err := ToDTO(st)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, status, dto)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, echecsdto.Health{Status: "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body echecsdto.CreateGameRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	if strings.TrimSpace(body.WhiteID) == "" || strings.TrimSpace(body.BlackID) == "" {
		s.writeError(w, badRequest("white_id and black_id are required"), "")
		return
	}
	st, err := s.sessions.Create(r.Context(), body.WhiteID, body.BlackID)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	s.writeState(w, http.StatusCreated, st)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	s.writeState(w, http.StatusOK, st)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body echecsdto.MoveRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	from := strings.ToLower(strings.TrimSpace(body.From))
	to := strings.ToLower(strings.TrimSpace(body.To))
	st, mv, err := s.sessions.PlayMove(r.Context(), mux.Vars(r)["id"], body.PlayerID, from, to)
	if err != nil {
		s.writeError(w, err, from)
		return
	}
	dto, err := ToDTO(st)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, echecsdto.MoveResponse{
		State:    dto,
		Line:     st.Moves[len(st.Moves)-1],
		Captured: mv.Captured.String(),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var body echecsdto.PlayerRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	st, undone, err := s.sessions.Undo(r.Context(), mux.Vars(r)["id"], body.PlayerID)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	dto, err := ToDTO(st)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, echecsdto.UndoResponse{State: dto, Undone: undone.String()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var body echecsdto.PlayerRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	st, err := s.sessions.Reset(r.Context(), mux.Vars(r)["id"], body.PlayerID)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	s.writeState(w, http.StatusOK, st)
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	board, err := st.Position.Board()
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	var opts render.Options
	if e, ok := st.LastMove(); ok {
		opts.Highlight = &render.Highlight{From: e.From, To: e.To}
	}
	png, err := s.renderer.RenderPNG(r.Context(), board, opts)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleFEN(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	board, err := st.Position.Board()
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, echecsdto.FEN{GameID: st.ID, FEN: fen.Encode(board, st.Active())})
}

func (s *Server) handleLoadFEN(w http.ResponseWriter, r *http.Request) {
	var body echecsdto.FENRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	record := strings.TrimSpace(body.FEN)
	board, active, err := fen.Decode(record)
	if err != nil {
		s.writeError(w, err, record)
		return
	}
	snap := savegame.FromBoard(board, active, 0, 0)
	st, err := s.sessions.Load(r.Context(), mux.Vars(r)["id"], body.PlayerID, snap)
	if err != nil {
		s.writeError(w, err, record)
		return
	}
	s.writeState(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	lines := st.Moves
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, echecsdto.History{GameID: st.ID, Lines: lines})
}

func (s *Server) handlePlayerGames(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.ActiveByPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	out := make([]*echecsdto.GameState, 0, len(list))
	for _, st := range list {
		dto, err := ToDTO(st)
		if err != nil {
			s.writeError(w, err, "")
			return
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.saves == nil {
		s.writeError(w, savegame.ErrNotFound, "")
		return
	}
	var body echecsdto.SaveRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.writeError(w, badRequest("name is required"), "")
		return
	}
	st, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	if st.SeatOf(strings.TrimSpace(body.PlayerID)) == rules.NoColor {
		s.writeError(w, session.ErrNotYourSeat, "")
		return
	}
	if err := s.saves.Save(r.Context(), name, st.Position); err != nil {
		s.writeError(w, err, name)
		return
	}
	writeJSON(w, http.StatusCreated, echecsdto.Saved{GameID: st.ID, Name: name})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.saves == nil {
		s.writeError(w, savegame.ErrNotFound, "")
		return
	}
	var body echecsdto.SaveRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	name := strings.TrimSpace(body.Name)
	snap, err := s.saves.Load(r.Context(), name)
	if err != nil {
		s.writeError(w, err, name)
		return
	}
	st, err := s.sessions.Load(r.Context(), mux.Vars(r)["id"], body.PlayerID, snap)
	if err != nil {
		s.writeError(w, err, name)
		return
	}
	s.writeState(w, http.StatusOK, st)
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if s.saves != nil {
		list, err := s.saves.List(r.Context())
		if err != nil {
			s.writeError(w, err, "")
			return
		}
		names = append(names, list...)
	}
	writeJSON(w, http.StatusOK, echecsdto.SaveList{Names: names})
}

func lobbyDTO(m *lobby.Meta) echecsdto.Lobby {
	return echecsdto.Lobby{
		Code:      m.Code,
		State:     string(m.State),
		CreatorID: m.CreatorID,
		Color:     string(m.Color),
		WhiteID:   m.WhiteID,
		BlackID:   m.BlackID,
		GameID:    m.GameID,
		CreatedAt: m.CreatedAt,
	}
}

func (s *Server) handleMakeLobby(w http.ResponseWriter, r *http.Request) {
	if s.lobbies == nil {
		s.writeError(w, lobby.ErrNotFound, "")
		return
	}
	var body echecsdto.LobbyRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	meta, err := s.lobbies.Make(r.Context(), body.PlayerID, lobby.ColorChoice(strings.ToLower(strings.TrimSpace(body.Color))))
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, lobbyDTO(meta))
}

func (s *Server) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	out := []echecsdto.Lobby{}
	if s.lobbies != nil {
		list, err := s.lobbies.Waiting(r.Context())
		if err != nil {
			s.writeError(w, err, "")
			return
		}
		for _, m := range list {
			out = append(out, lobbyDTO(m))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	if s.lobbies == nil {
		s.writeError(w, lobby.ErrNotFound, "")
		return
	}
	meta, err := s.lobbies.Get(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, lobbyDTO(meta))
}

func (s *Server) handleJoinLobby(w http.ResponseWriter, r *http.Request) {
	if s.lobbies == nil {
		s.writeError(w, lobby.ErrNotFound, "")
		return
	}
	var body echecsdto.LobbyRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, err, "")
		return
	}
	meta, err := s.lobbies.Join(r.Context(), mux.Vars(r)["code"], body.PlayerID)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, lobbyDTO(meta))
}
