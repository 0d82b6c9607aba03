package v0_rest

import (
	"log"
	"net/http"

	"github.com/blue-horizon/syncd/pkg/session"
	"github.com/getsentry/sentry-go"
)

func login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !decodeBody(w, r, &req) {
		return
	}

	if ratelimited("login", "ip", r.RemoteAddr) {
		returnErr(w, http.StatusTooManyRequests, ErrRatelimited, nil)
		return
	}
	ratelimit(w, "login", "ip", r.RemoteAddr, 5, 60)

	s, err := deps.Sessions.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		log.Println("login failed:", err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	deps.Bus.SessionUpdated(s.DID, s.Handle, true)

	returnData(w, http.StatusOK, SessionResp{DID: s.DID, Handle: s.Handle})
}

func getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := deps.Sessions.Current()
	if !ok {
		returnErr(w, http.StatusUnauthorized, ErrNoSession, nil)
		return
	}
	returnData(w, http.StatusOK, SessionResp{DID: s.DID, Handle: s.Handle})
}

func logout(w http.ResponseWriter, r *http.Request) {
	if err := deps.Sessions.Logout(r.Context()); err != nil && err != session.ErrNoSession {
		sentry.CaptureException(err)
		returnErr(w, http.StatusInternalServerError, ErrInternal, nil)
		return
	}
	deps.Bus.SessionUpdated("", "", false)
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}
