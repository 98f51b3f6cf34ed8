package editor

import (
	"time"

	"github.com/roach88/signflow/internal/syncer"
)

// NotFoundRedirectDelay is how long the shell shows the not-found notice
// before leaving the editor.
const NotFoundRedirectDelay = 3 * time.Second

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeNetwork  NoticeKind = "network"
	NoticeNotFound NoticeKind = "not_found"
	NoticeMismatch NoticeKind = "mismatch"
	NoticeSaved    NoticeKind = "saved"
)

// Notice is a non-blocking message for the shell. The editor never waits
// for a notice to be acknowledged.
type Notice struct {
	Kind    NoticeKind
	Stream  syncer.Stream
	Message string

	// RedirectAfter is set for NoticeNotFound.
	RedirectAfter time.Duration
}

// Notifier receives notices. It is called on the session goroutine and must
// not call back into the session.
type Notifier func(Notice)
