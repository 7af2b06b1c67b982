package server

import (
	"net/http"
	"strings"

	gsessions "github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
)

const (
	noticeSessionName = "account_notice"
	noticeMaxAge      = 300
)

func newNoticeStore(secret []byte, secure bool) *gsessions.CookieStore {
	store := gsessions.NewCookieStore(secret)
	store.Options = &gsessions.Options{
		Path:     "/",
		MaxAge:   noticeMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// addNotice queues a one-shot message for the next rendered page. Must be
// called before the response is written.
func (s *Server) addNotice(w http.ResponseWriter, r *http.Request, msg string) {
	notice, err := s.notices.Get(r, noticeSessionName)
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable notice cookie")
	}
	notice.AddFlash(msg)
	if err := notice.Save(r, w); err != nil {
		log.Err(err).Msg("failed to save notice")
	}
}

// popNotice returns and consumes the queued messages.
func (s *Server) popNotice(w http.ResponseWriter, r *http.Request) string {
	notice, err := s.notices.Get(r, noticeSessionName)
	if err != nil || notice.IsNew {
		return ""
	}
	flashes := notice.Flashes()
	if len(flashes) == 0 {
		return ""
	}
	if err := notice.Save(r, w); err != nil {
		log.Err(err).Msg("failed to clear notice")
	}

	msgs := make([]string, 0, len(flashes))
	for _, f := range flashes {
		if msg, ok := f.(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return strings.Join(msgs, " ")
}
