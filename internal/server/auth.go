package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"fortytwo/internal/model"
)

const cookieName = "fortytwo_token"

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func (s *Server) signJWT(a *account) (string, time.Time, error) {
	exp := time.Now().Add(14 * 24 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       a.ID,
		"username": a.Username,
		"is_guest": a.IsGuest,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := token.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// issueSession signs a cookie for the account and writes the sign-in body.
func (s *Server) issueSession(w http.ResponseWriter, a *account) {
	token, exp, err := s.signJWT(a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	writeJSON(w, map[string]any{
		"success": true,
		"user":    model.User{ID: a.ID, Username: a.Username, IsGuest: a.IsGuest},
	})
}

func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

type contextKey string

var userCtxKey = contextKey("user")

// requireAuth validates the session cookie and puts the user on the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(cookieName)
		if err != nil || c.Value == "" {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		id, _ := claims["id"].(float64)
		username, _ := claims["username"].(string)
		isGuest, _ := claims["is_guest"].(bool)
		if username == "" {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		u := model.User{ID: int(id), Username: username, IsGuest: isGuest}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey, u)))
	})
}

func sessionUser(r *http.Request) (model.User, error) {
	u, ok := r.Context().Value(userCtxKey).(model.User)
	if !ok {
		return model.User{}, errors.New("no user")
	}
	return u, nil
}
