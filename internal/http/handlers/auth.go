package handlers

import (
	"net/http"
)

type googleVerifyRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type sessionDTO struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

type googleVerifyResponse struct {
	Token string     `json:"token"`
	User  sessionDTO `json:"user"`
}

// AuthGoogleVerify exchanges a Google ID token for a studio session token.
func (a *App) AuthGoogleVerify(w http.ResponseWriter, r *http.Request) {
	var req googleVerifyRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}

	session, token, err := a.Auth.SignIn(r.Context(), req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: google verify failed")
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, googleVerifyResponse{
		Token: token,
		User: sessionDTO{
			UserID:      session.UserID,
			DisplayName: session.DisplayName,
			Email:       session.Email,
			Locale:      session.Locale,
		},
	})
}

// AuthSignOut ends the calling session. All per-session studio state is torn
// down through the auth-state subscription.
func (a *App) AuthSignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	a.Auth.SignOut(session.ID)
	a.json(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Me describes the calling session.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	a.json(w, http.StatusOK, sessionDTO{
		UserID:      session.UserID,
		DisplayName: session.DisplayName,
		Email:       session.Email,
		Locale:      session.Locale,
	})
}
