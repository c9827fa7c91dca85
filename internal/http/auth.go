package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/movie-discovery/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User domain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	user, err := s.app.Session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, userResponse{User: user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	user, err := s.app.Session.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, userResponse{User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Session.Logout(r.Context()); err != nil {
		s.respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.Session.State())
}

// currentUser writes a 401 and returns nil when nobody is signed in.
func (s *Server) currentUser(w http.ResponseWriter) *domain.User {
	user := s.app.Session.CurrentUser()
	if user == nil {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to rate movies")
	}
	return user
}
