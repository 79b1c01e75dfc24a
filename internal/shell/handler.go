package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// WelcomeMessage greets the user when a conversation starts. It is shown
// but never sent to a backend.
const WelcomeMessage = "Hi there! I'm your wellness companion. How are you feeling today?"

const unreachableMessage = "I couldn't reach any of my servers just now. Please try again in a moment."

const helpText = `Commands:
  /1 ... /5     send the numbered quick reply
  /next         switch to the next server
  /server N     switch to server N
  /servers      list servers
  /copy         copy the last reply to the clipboard
  /debug        show the last request sent to a server
  /reset        start a new conversation
  /help         show this help
  /exit         leave`

// Copier places text on the system clipboard.
type Copier func(text string) error

// Shell processes interactive chat input against an initialized service graph.
type Shell struct {
	svc          *Services
	out          io.Writer
	instructions string
	copier       Copier

	lastReply    string
	quickReplies []string
}

// New creates a Shell that writes to out. The loading indicator is wired to
// the failover service so it shows for every backend round trip.
func New(svc *Services, out io.Writer) *Shell {
	s := &Shell{
		svc:          svc,
		out:          out,
		instructions: svc.Instructions.Build(svc.Config.UserProfile()),
		copier:       systemClipboard(),
	}
	svc.Failover.SetLoadingObserver(func(loading bool) {
		if loading {
			fmt.Fprintln(s.out, svc.Render.Muted("… thinking"))
		}
	})
	return s
}

// SetCopier replaces the clipboard writer.
func (s *Shell) SetCopier(copier Copier) {
	s.copier = copier
}

// Start resets the conversation and prints the welcome message.
func (s *Shell) Start() {
	s.svc.History.Reset(WelcomeMessage)
	s.lastReply = ""
	s.quickReplies = nil
	fmt.Fprintln(s.out, s.svc.Render.ServerLabel(s.svc.Chat.GetCurrentServerInfo()))
	fmt.Fprintln(s.out, s.svc.Markdown.Render(WelcomeMessage))
}

// ProcessInput handles one line of input and reports whether the user
// asked to quit.
func (s *Shell) ProcessInput(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		_ = s.Send(ctx, line)
		return false
	}

	fields := strings.Fields(line)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(s.out, helpText)
	case "/next":
		profile := s.svc.Chat.ToggleAPIService()
		fmt.Fprintln(s.out, "Switched to "+s.svc.Render.ServerLabel(profile))
	case "/server":
		s.selectServer(args)
	case "/servers":
		fmt.Fprintln(s.out, s.svc.Render.ServerList(s.svc.Catalog.ListProviders(), s.svc.Chat.CurrentServerIndex()))
	case "/copy":
		s.copyLastReply()
	case "/reset":
		s.Start()
	case "/debug":
		s.showLastExchange()
	default:
		if n, err := strconv.Atoi(strings.TrimPrefix(command, "/")); err == nil {
			s.sendQuickReply(ctx, n)
			return false
		}
		fmt.Fprintln(s.out, s.svc.Render.Failure("Unknown command: "+command+" (try /help)"))
	}
	return false
}

// Send delivers text to the assistant, records the exchange and prints the
// reply with its quick replies. The history is only extended on success.
func (s *Shell) Send(ctx context.Context, text string) error {
	history := s.svc.History.Snapshot()

	reply, err := s.svc.Chat.GetChatResponse(ctx, text, s.instructions, history)
	if err != nil {
		s.reportFailure(err)
		return err
	}

	s.svc.History.AppendUser(text)
	s.svc.History.AppendAssistant(reply.Text)
	s.lastReply = reply.Text

	fmt.Fprintln(s.out, s.svc.Render.ServerLabel(s.svc.Chat.GetCurrentServerInfo()))
	fmt.Fprintln(s.out, s.svc.Markdown.Render(reply.Text))

	s.quickReplies = s.svc.Chat.GenerateQuickReplies(ctx, text, reply.Text)
	if len(s.quickReplies) > 0 {
		fmt.Fprintln(s.out, s.svc.Render.QuickReplyChips(s.quickReplies))
	}
	return nil
}

// QuickReplies returns the suggestions for the latest exchange.
func (s *Shell) QuickReplies() []string {
	return append([]string(nil), s.quickReplies...)
}

// LastReply returns the text of the latest assistant reply.
func (s *Shell) LastReply() string {
	return s.lastReply
}

func (s *Shell) reportFailure(err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(s.out, s.svc.Render.Muted("Cancelled."))
		return
	}

	var failover *chattypes.FailoverError
	if errors.As(err, &failover) {
		logger.Error("All providers failed", "attempts", failover.Summary())
	} else {
		logger.Error("Chat request failed", "error", err)
	}
	fmt.Fprintln(s.out, s.svc.Render.Failure(unreachableMessage))
}

func (s *Shell) sendQuickReply(ctx context.Context, n int) {
	if n < 1 || n > len(s.quickReplies) {
		fmt.Fprintln(s.out, s.svc.Render.Failure(fmt.Sprintf("No quick reply %d", n)))
		return
	}
	text := s.quickReplies[n-1]
	fmt.Fprintln(s.out, s.svc.Render.Muted("> "+text))
	_ = s.Send(ctx, text)
}

func (s *Shell) selectServer(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, s.svc.Render.Failure("Usage: /server N"))
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || !s.svc.Chat.SetAPIService(n-1) {
		fmt.Fprintln(s.out, s.svc.Render.Failure(fmt.Sprintf("No server %s (have %d)", args[0], s.svc.Catalog.Len())))
		return
	}
	fmt.Fprintln(s.out, "Switched to "+s.svc.Render.ServerLabel(s.svc.Chat.GetCurrentServerInfo()))
}

func (s *Shell) copyLastReply() {
	if s.lastReply == "" {
		fmt.Fprintln(s.out, s.svc.Render.Muted("Nothing to copy yet."))
		return
	}
	if err := s.copier(s.lastReply); err != nil {
		logger.Debug("Clipboard write failed", "error", err)
		fmt.Fprintln(s.out, s.svc.Render.Failure("Clipboard unavailable: "+err.Error()))
		return
	}
	fmt.Fprintln(s.out, s.svc.Render.Muted("Copied."))
}

func (s *Shell) showLastExchange() {
	data, ok := s.svc.Traffic.LastExchangeJSON()
	if !ok {
		fmt.Fprintln(s.out, s.svc.Render.Muted("No request has been sent yet."))
		return
	}
	fmt.Fprintln(s.out, data)
}
