package v0_rest

import (
	"context"
	"net/http"

	"github.com/blue-horizon/syncd/pkg/retry"
	"github.com/go-chi/chi/v5"
)

const serviceVersion = "0.3.0"

func RootRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", root)
	r.Get("/status", getStatus)
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {})

	return r
}

func root(w http.ResponseWriter, r *http.Request) {
	returnData(w, http.StatusOK, WelcomeResp{
		Error:   false,
		Service: "syncd",
		Version: serviceVersion,
	})
}

func getStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResp{}

	if s, ok := deps.Sessions.Current(); ok {
		resp.SessionActive = true
		resp.Handle = s.Handle
		resp.DID = s.DID
	}

	depth, err := retry.Depth(context.TODO())
	if err == nil {
		resp.RetryQueueDepth = depth
	}

	returnData(w, http.StatusOK, resp)
}
