package web

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/goji/httpauth"
	"github.com/gorilla/securecookie"
)

const (
	cookieName  = "eegweb"
	cookieValue = "authenticated"
)

type AuthMiddleware struct {
	sc   *securecookie.SecureCookie
	opts httpauth.AuthOptions
}

// Setup new middleware for authenticating requests. Credentials are read
// from the EEG_WEB_USER and EEG_WEB_PASS environment variables.
func NewAuthMiddleware() AuthMiddleware {
	hashKey := securecookie.GenerateRandomKey(32)
	blockKey := securecookie.GenerateRandomKey(32)
	return AuthMiddleware{
		sc:   securecookie.New(hashKey, blockKey),
		opts: httpauth.AuthOptions{Realm: "Restricted", AuthFunc: authEnv},
	}
}

// Enabled reports whether credentials are configured.
func (mw AuthMiddleware) Enabled() bool {
	return os.Getenv("EEG_WEB_USER") != ""
}

// If session cookie is not present then use basic auth to login and set a cookie.
func (mw AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(cookieName); err == nil {
			var value string
			if err = mw.sc.Decode(cookieName, cookie.Value, &value); err == nil && value == cookieValue {
				next.ServeHTTP(w, r)
				return
			}
		}
		httpauth.BasicAuth(mw.opts)(mw.setCookie(next)).ServeHTTP(w, r)
	})
}

func (mw AuthMiddleware) setCookie(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if encoded, err := mw.sc.Encode(cookieName, cookieValue); err == nil {
			cookie := &http.Cookie{Name: cookieName, Value: encoded, Path: "/"}
			http.SetCookie(w, cookie)
		} else {
			log.Println("error encoding cookie:", err)
		}
		h.ServeHTTP(w, r)
	})
}

func authEnv(user, pass string, r *http.Request) bool {
	u := os.Getenv("EEG_WEB_USER")
	p := os.Getenv("EEG_WEB_PASS")
	ok := u != "" &&
		subtle.ConstantTimeCompare([]byte(user), []byte(u)) == 1 &&
		subtle.ConstantTimeCompare([]byte(pass), []byte(p)) == 1
	log.Println("auth", user, ok)
	return ok
}
