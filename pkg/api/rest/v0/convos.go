package v0_rest

import (
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
)

func getConversations(w http.ResponseWriter, r *http.Request) {
	list, err := deps.Convos.Conversations(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, ConversationsResp{Conversations: list})
}

func getMessages(w http.ResponseWriter, r *http.Request) {
	convoID := chi.URLParam(r, "convoId")
	messages, cursor, err := deps.Convos.Messages(r.Context(), convoID, r.URL.Query().Get("cursor"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, MessagesResp{Messages: messages, Cursor: cursor})
}

// Sends are fire-and-forget like the post toggles: the optimistic message
// is already in the cached view before this handler returns.
func sendMessage(w http.ResponseWriter, r *http.Request) {
	convoID := chi.URLParam(r, "convoId")

	var req SendMessageReq
	if !decodeBody(w, r, &req) {
		return
	}

	did := deps.Sessions.DID()
	if ratelimited("send", "user", did) {
		returnErr(w, http.StatusTooManyRequests, ErrRatelimited, nil)
		return
	}
	ratelimit(w, "send", "user", did, 30, 60)

	go deps.Engine.SendMessage(context.Background(), convoID, req.Text, req.Nonce)
	returnData(w, http.StatusAccepted, AcceptedResp{Accepted: true})
}

func updateRead(w http.ResponseWriter, r *http.Request) {
	convoID := chi.URLParam(r, "convoId")

	var req UpdateReadReq
	if !decodeBody(w, r, &req) {
		return
	}

	if err := deps.Convos.UpdateRead(r.Context(), convoID, req.MessageID); err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusBadGateway, ErrUpstream, nil)
		return
	}
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}

func getUnread(w http.ResponseWriter, r *http.Request) {
	count, err := deps.Client.UnreadCount(r.Context())
	if err != nil {
		// Fall back to the cached conversation list when upstream is down.
		returnData(w, http.StatusOK, UnreadResp{Count: deps.Convos.UnreadTotal()})
		return
	}
	returnData(w, http.StatusOK, UnreadResp{Count: count})
}
