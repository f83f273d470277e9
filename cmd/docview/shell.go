package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/docview/internal/docview"
	"github.com/starford/docview/internal/render"
)

const shellHelp = `Type a question and press Enter to ask it.
End a line with \ to continue the question on the next line.
Lines starting with : are always commands.

  :history            show the query history
  :expand N           show or hide the answer of history entry N
  :summary            show the summary
  :content            show the document content
  :copy summary|content
  :open ID            open another document
  :retry              resend a question that failed
  :clear              discard a question that failed
  :help               show this help
  :quit               leave
`

// shell is a line-oriented front end for a View. Each input line is typed
// into the pending question; a line ending in a backslash is a modified
// Enter and only inserts a newline.
type shell struct {
	view *docview.View
	in   io.Reader
	out  io.Writer

	// kept is set while the pending text is a question whose submission
	// failed. The next plain line replaces it.
	kept bool
}

func newShell(view *docview.View, in io.Reader, out io.Writer) *shell {
	return &shell{view: view, in: in, out: out}
}

// Run opens rawID and processes input until EOF or :quit.
func (s *shell) Run(ctx context.Context, rawID string) error {
	s.view.Session().OnChange(func(snap docview.Snapshot) {
		if snap.Submitting() {
			render.WriteStatus(s.out, snap)
		}
	})
	defer s.view.Session().OnChange(nil)

	s.open(ctx, rawID)

	sc := bufio.NewScanner(s.in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	s.prompt()
	for sc.Scan() {
		if done := s.handleLine(ctx, sc.Text()); done {
			return nil
		}
		s.prompt()
	}
	return sc.Err()
}

func (s *shell) prompt() {
	if !s.kept && s.view.Session().Pending() != "" {
		fmt.Fprint(s.out, "... ")
		return
	}
	fmt.Fprint(s.out, "> ")
}

func (s *shell) open(ctx context.Context, rawID string) {
	_ = s.view.Open(ctx, rawID)
	_ = render.WriteView(s.out, s.view.Loader().State(), s.view.Session().Snapshot(), render.TabAll, render.FormatText)
}

// handleLine processes one input line and reports whether the shell should exit.
func (s *shell) handleLine(ctx context.Context, line string) bool {
	if strings.HasPrefix(line, ":") {
		return s.command(ctx, strings.Fields(line[1:]))
	}

	session := s.view.Session()
	draft := session.Pending()
	if s.kept {
		draft = ""
		s.kept = false
	}

	if cont, ok := strings.CutSuffix(line, `\`); ok {
		session.SetPending(draft + cont + "\n")
		_, _ = session.HandleKey(ctx, docview.KeyEvent{Key: docview.KeyEnter, Shift: true})
		return false
	}

	session.SetPending(draft + line)
	s.submit(ctx)
	return false
}

// submit sends the pending question and prints the outcome.
func (s *shell) submit(ctx context.Context) {
	session := s.view.Session()
	before := len(session.Snapshot().Queries)
	if _, err := session.HandleKey(ctx, docview.KeyEvent{Key: docview.KeyEnter}); err != nil {
		render.WriteStatus(s.out, session.Snapshot())
		fmt.Fprintln(s.out, "draft kept; :retry to resend, :clear to discard")
		s.kept = true
		return
	}
	s.kept = false
	snap := session.Snapshot()
	switch {
	case len(snap.Queries) > before:
		render.WriteAnswer(s.out, snap.Queries[0])
	case snap.DocumentID == 0:
		fmt.Fprintln(s.out, "no document is open (use :open ID)")
		session.SetPending("")
	case strings.TrimSpace(snap.Pending) == "":
		// Blank question: nothing was sent, drop the whitespace.
		session.SetPending("")
	}
}

func (s *shell) command(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		fmt.Fprint(s.out, shellHelp)
		return false
	}
	st := s.view.Loader().State()
	snap := s.view.Session().Snapshot()

	switch args[0] {
	case "q", "quit", "exit":
		return true
	case "help", "h":
		fmt.Fprint(s.out, shellHelp)
	case "history":
		render.WriteHistory(s.out, snap)
	case "summary":
		_ = render.WriteView(s.out, st, snap, render.TabSummary, render.FormatText)
	case "content":
		_ = render.WriteView(s.out, st, snap, render.TabDocument, render.FormatText)
	case "expand", "toggle":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "usage: :expand N")
			return false
		}
		i, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "not a number: %s\n", args[1])
			return false
		}
		s.view.Session().ToggleExpanded(i)
		render.WriteHistory(s.out, s.view.Session().Snapshot())
	case "copy":
		what := "summary"
		if len(args) > 1 {
			what = args[1]
		}
		switch what {
		case "summary":
			s.view.CopySummary()
		case "content":
			s.view.CopyContent()
		default:
			fmt.Fprintf(s.out, "cannot copy %q\n", what)
			return false
		}
		fmt.Fprintf(s.out, "Copied %s\n", what)
	case "retry":
		if strings.TrimSpace(s.view.Session().Pending()) == "" {
			fmt.Fprintln(s.out, "nothing to retry")
			return false
		}
		s.submit(ctx)
	case "clear":
		s.view.Session().SetPending("")
		s.kept = false
	case "open":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "usage: :open ID")
			return false
		}
		s.open(ctx, args[1])
		s.kept = s.kept && s.view.Session().Pending() != ""
	default:
		fmt.Fprintf(s.out, "unknown command :%s (try :help)\n", args[0])
	}
	return false
}
