package server

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/signup", s.handleSignup)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/password/forgot", s.handleForgotPassword)
	s.mux.HandleFunc("/api/password/reset", s.handleResetPassword)

	s.mux.HandleFunc("/api/lock", s.requireSession(s.handleLock))
	s.mux.HandleFunc("/api/files", s.requireSession(s.handleList))
	s.mux.HandleFunc("/api/retrieve", s.requireSession(s.handleRetrieve))
	s.mux.HandleFunc("/api/delete", s.requireSession(s.handleDelete))
	s.mux.HandleFunc("/api/recycle", s.requireSession(s.handleRecycleBin))
	s.mux.HandleFunc("/api/restore", s.requireSession(s.handleRestore))
}
