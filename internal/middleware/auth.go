package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	"github.com/festival-planner/app/internal/config"
	"github.com/festival-planner/app/internal/log"
)

// HashPassword returns the bcrypt hash stored as ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares a bcrypt hash with a plain-text password.
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// RequireAdmin guards lineup imports with HTTP Basic Auth. When no admin is
// configured the endpoint is closed.
func RequireAdmin(admin config.AdminConfig, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !admin.Enabled() {
			writeError(w, http.StatusForbidden, "admin access is not configured")
			return
		}

		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(admin.Username)) == 1
		passMatch := false
		if ok && userMatch {
			passMatch = VerifyPassword(admin.PasswordHash, pass) == nil
		}

		if !ok || !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Festival Planner Admin"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			log.Info("admin auth failed", "remote", r.RemoteAddr, "user", user)
			return
		}
		next(w, r, ps)
	}
}
