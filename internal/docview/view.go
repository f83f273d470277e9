package docview

import (
	"context"
	"log/slog"

	"github.com/starford/docview/internal/credential"
)

// Clipboard accepts text to copy. Writes are fire-and-forget.
type Clipboard interface {
	WriteText(text string) error
}

// Navigator sends the user somewhere else, e.g. to the login entry point.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// ExpireSession returns a SessionExpiredHandler that clears the stored
// credential and navigates to loginURL.
func ExpireSession(store credential.Store, nav Navigator, loginURL string, logger *slog.Logger) SessionExpiredHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) {
		if err := store.Clear(); err != nil {
			logger.Error("docview: clear credential failed", slog.String("error", err.Error()))
		}
		nav.Navigate(ctx, loginURL)
	}
}

// View wires a Loader and a Session for one document at a time.
type View struct {
	loader    *Loader
	session   *Session
	clipboard Clipboard
	logger    *slog.Logger
}

// NewView creates a View. clipboard may be nil, in which case copies are dropped.
func NewView(loader *Loader, session *Session, clipboard Clipboard, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{loader: loader, session: session, clipboard: clipboard, logger: logger}
}

// Open loads rawID if it differs from the current identifier and, on
// success, hands the embedded queries to the session. A failed load leaves
// the session unbound.
func (v *View) Open(ctx context.Context, rawID string) error {
	loaded, err := v.loader.Ensure(ctx, rawID)
	if err != nil {
		if loaded {
			// The previous document is gone; late answers for it must not land.
			v.session.Reset(0, nil)
		}
		return err
	}
	if loaded {
		doc := v.loader.State().Document
		v.session.Reset(doc.ID, doc.Queries)
	}
	return nil
}

// Loader returns the view's document loader.
func (v *View) Loader() *Loader {
	return v.loader
}

// Session returns the view's query session.
func (v *View) Session() *Session {
	return v.session
}

// CopySummary copies the document summary to the clipboard.
func (v *View) CopySummary() {
	v.copy(v.loader.State().Document.Summary)
}

// CopyContent copies the document content to the clipboard.
func (v *View) CopyContent() {
	v.copy(v.loader.State().Document.Content)
}

func (v *View) copy(text string) {
	if v.clipboard == nil {
		return
	}
	if err := v.clipboard.WriteText(text); err != nil {
		v.logger.Debug("docview: clipboard write failed", slog.String("error", err.Error()))
	}
}
