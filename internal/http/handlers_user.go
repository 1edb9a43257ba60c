package http

import (
	"net/http"
	"net/url"

	"mywallet/internal/core"
	"mywallet/internal/log"
	"mywallet/internal/services"
)

const (
	msgSignin          = "Signin successful"
	msgEmailVerified   = "User email verified successfully."
	msgPasswordUpdated = "Password updated successfully"
	msgPasswordReset   = "Password reset successfully"
	msgProfileUpdated  = "Profile updated successfully"
	msgProfileFetched  = "User profile fetched successfully"
	msgUserDeleted     = "User record deleted successfully"
)

func (s *Server) registerUserRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /user/signup", s.handleSignup)
	mux.HandleFunc("POST /user/signin", s.handleSignin)
	mux.HandleFunc("POST /user/verifyOTP", s.handleVerifyOTP)
	mux.HandleFunc("POST /user/resendOTPVerificationCode", s.handleResend(core.PurposeOTP))
	mux.HandleFunc("POST /user/resendVerificationLink", s.handleResend(core.PurposeEmailLink))
	mux.HandleFunc("GET /user/verify/{userId}/{uniqueString}", s.handleVerifyLink)
	mux.HandleFunc("GET /user/verified", s.handleVerifiedPage)
	mux.HandleFunc("POST /user/updatePassword", s.handleUpdatePassword)
	mux.HandleFunc("POST /user/updateProfile", s.handleUpdateProfile)
	mux.HandleFunc("POST /user/getProfile", s.handleGetProfile)
	mux.HandleFunc("POST /user/requestPasswordReset", s.handleRequestPasswordReset)
	mux.HandleFunc("POST /user/resetPassword", s.handleResetPassword)
	mux.HandleFunc("DELETE /user/delete/{userId}", s.handleUserDelete)
}

// pendingData is returned while a token is waiting to be redeemed.
type pendingData struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	u, err := s.svc.Users.Signup(r.Context(), services.SignupInput{
		Name:        p.Get("name"),
		Email:       p.Get("email"),
		DateOfBirth: p.Get("dateOfBirth"),
		Password:    p.Get("password"),
	}, s.opts.SignupPurpose)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	NewResponse(StatusPending).
		Message(services.SentMessage(s.opts.SignupPurpose)).
		Data(pendingData{UserID: u.ID, Email: u.Email}).
		Write(w, r)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	u, err := s.svc.Users.Signin(r.Context(), p.Get("email"), p.Get("password"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgSignin).Data(u).Write(w, r)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	if _, err := s.svc.Verification.Verify(r.Context(), p.Get("userId"), p.Get("otp"), core.PurposeOTP); err != nil {
		FromError(err).Write(w, r)
		return
	}
	NewResponse(StatusVerified).Message(msgEmailVerified).Write(w, r)
}

func (s *Server) handleResend(purpose core.TokenPurpose) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseBody(w, r)
		if err != nil {
			FromError(err).Write(w, r)
			return
		}
		userID, email := p.Get("userId"), p.Get("email")
		if err := s.svc.Verification.Resend(r.Context(), userID, email, purpose); err != nil {
			FromError(err).Write(w, r)
			return
		}
		NewResponse(StatusPending).
			Message(services.SentMessage(purpose)).
			Data(pendingData{UserID: userID, Email: email}).
			Write(w, r)
	}
}

// handleVerifyLink redeems a mailed link and sends the browser to the
// verified page, carrying the failure message when there is one.
func (s *Server) handleVerifyLink(w http.ResponseWriter, r *http.Request) {
	_, err := s.svc.Verification.Verify(r.Context(), r.PathValue("userId"), r.PathValue("uniqueString"), core.PurposeEmailLink)
	if err != nil {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Email link rejected",
			log.FieldUserID, r.PathValue("userId"), log.FieldError, err)
		q := url.Values{"error": {"true"}, "message": {core.MessageOf(err)}}
		http.Redirect(w, r, "/user/verified?"+q.Encode(), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/user/verified", http.StatusFound)
}

type verifiedPage struct {
	Failed  bool
	Message string
}

func (s *Server) handleVerifiedPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := verifiedPage{Message: msgEmailVerified}
	if q.Get("error") == "true" {
		page = verifiedPage{Failed: true, Message: q.Get("message")}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, "verified.html", page); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to render verified page", log.FieldError, err)
	}
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	if err := s.svc.Users.UpdatePassword(r.Context(), p.Get("userId"), p.Get("oldPassword"), p.Get("newPassword")); err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgPasswordUpdated).Write(w, r)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	u, err := s.svc.Users.UpdateProfile(r.Context(), p.Get("userId"), p.Get("name"), p.Get("email"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgProfileUpdated).Data(u).Write(w, r)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	u, err := s.svc.Users.GetProfile(r.Context(), p.Get("userId"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgProfileFetched).Data(u).Write(w, r)
}

func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	u, err := s.svc.Verification.RequestPasswordReset(r.Context(), p.Get("email"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	NewResponse(StatusPending).
		Message(services.SentMessage(core.PurposePasswordReset)).
		Data(pendingData{UserID: u.ID, Email: u.Email}).
		Write(w, r)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	if _, err := s.svc.Verification.ResetPassword(r.Context(), p.Get("userId"), p.Get("otp"), p.Get("newPassword")); err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgPasswordReset).Write(w, r)
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Users.Delete(r.Context(), r.PathValue("userId"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgUserDeleted).Data(u).Write(w, r)
}
