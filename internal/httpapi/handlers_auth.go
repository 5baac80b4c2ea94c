package httpapi

import (
	"net/http"
)

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !s.decode(w, r, &body) {
		return
	}
	u, err := s.gate.Register(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !s.decode(w, r, &body) {
		return
	}
	u, err := s.gate.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	token, err := s.sessions.Open(r.Context(), u.Identity(), s.sessionTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), bearerToken(r)); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, identity(r))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.gate.Users(r.Context(), identity(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, users)
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		IsAdmin bool `json:"is_admin"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.gate.SetAdmin(r.Context(), identity(r), id, body.IsAdmin); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Username string `json:"username"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.gate.RenameUser(r.Context(), identity(r), id, body.Username); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.gate.ResetPassword(r.Context(), identity(r), id, body.Password); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.gate.DeleteUser(r.Context(), identity(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}
