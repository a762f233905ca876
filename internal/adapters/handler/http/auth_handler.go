package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieConfig
	metrics     *Metrics
	validate    *validator.Validate
	errs        errorWriter
}

func NewAuthHandler(authService ports.AuthService, cookies CookieConfig, metrics *Metrics, validate *validator.Validate, errs errorWriter) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		metrics:     metrics,
		validate:    validate,
		errs:        errs,
	}
}

type registerRequest struct {
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=128,password"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

type googleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

type sessionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	user, err := h.authService.Register(r.Context(), ports.RegisterInput{
		Email:     sanitizeEmail(body.Email),
		Password:  body.Password,
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	h.metrics.RecordAuthEvent("register", err)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Success: true,
		Message: "User registered successfully. Please check your email to verify your account.",
		User:    user,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	session, err := h.authService.Login(r.Context(), sanitizeEmail(body.Email), body.Password)
	h.metrics.RecordAuthEvent("login", err)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.cookies.setSession(w, &session.TokenPair)
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Message: "Login successful", User: session.User})
}

// GoogleLogin exchanges a Google ID token for a session.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var body googleLoginRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	session, err := h.authService.LoginWithGoogle(r.Context(), body.Credential)
	h.metrics.RecordAuthEvent("google", err)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.cookies.setSession(w, &session.TokenPair)
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Message: "Login successful", User: session.User})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeErr(w, http.StatusBadRequest, domain.CodeValidation, "Verification token is required")
		return
	}

	session, err := h.authService.VerifyEmail(r.Context(), token)
	h.metrics.RecordAuthEvent("verify", err)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.cookies.setSession(w, &session.TokenPair)
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Message: "Email verified successfully", User: session.User})
}

// RefreshToken rotates the refresh token validated by ValidateRefreshToken.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := refreshClaimsFromContext(r.Context())
	if !ok {
		h.errs.write(w, r, domain.ErrRefreshAuthFailed)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), claims.TokenID, claims.UserID)
	h.metrics.RecordAuthEvent("refresh", err)
	if err != nil {
		h.cookies.clearSession(w)
		h.errs.write(w, r, err)
		return
	}

	h.cookies.setSession(w, pair)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Token refreshed"})
}

// Logout always clears the cookies, whether or not the refresh token was still live.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookieName); err == nil {
		token = c.Value
	}

	err := h.authService.Logout(r.Context(), token)
	h.metrics.RecordAuthEvent("logout", err)
	h.cookies.clearSession(w)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPasswordRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	err := h.authService.ForgotPassword(r.Context(), sanitizeEmail(body.Email))
	h.metrics.RecordAuthEvent("forgot", err)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "If an account with that email exists, a password reset link has been sent.",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	err := h.authService.ResetPassword(r.Context(), body.Token, body.Password)
	h.metrics.RecordAuthEvent("reset", err)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.cookies.clearSession(w)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password has been reset. Please log in again."})
}
