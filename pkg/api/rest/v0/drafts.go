package v0_rest

import (
	"net/http"

	"github.com/blue-horizon/syncd/pkg/drafts"
	"github.com/blue-horizon/syncd/pkg/upstream"
	"github.com/getsentry/sentry-go"
)

// Draft slots are addressed by composition target via the reply_to and
// quote_uri query params; neither set means the fresh-post slot.
func getDraft(w http.ResponseWriter, r *http.Request) {
	d, ok, err := drafts.Get(r.Context(), r.URL.Query().Get("reply_to"), r.URL.Query().Get("quote_uri"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusInternalServerError, ErrInternal, nil)
		return
	}
	if !ok {
		returnErr(w, http.StatusNotFound, ErrNotFound, nil)
		return
	}
	returnData(w, http.StatusOK, d)
}

func saveDraft(w http.ResponseWriter, r *http.Request) {
	var req SaveDraftReq
	if !decodeBody(w, r, &req) {
		return
	}

	err := drafts.Save(r.Context(), upstream.PostPayload{
		Text:     req.Text,
		ReplyTo:  req.ReplyTo,
		QuoteURI: req.QuoteURI,
		QuoteCID: req.QuoteCID,
	})
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusInternalServerError, ErrInternal, nil)
		return
	}
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}

func clearDraft(w http.ResponseWriter, r *http.Request) {
	err := drafts.Clear(r.Context(), r.URL.Query().Get("reply_to"), r.URL.Query().Get("quote_uri"))
	if err != nil {
		sentry.CaptureException(err)
		returnErr(w, http.StatusInternalServerError, ErrInternal, nil)
		return
	}
	returnData(w, http.StatusOK, map[string]bool{"ok": true})
}
