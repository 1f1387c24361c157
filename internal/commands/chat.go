package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/therapist-ai/backend/internal/render"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with TherapistAI.

Every message is answered on its own: the therapist does not see earlier
turns. Commands:
  /name <name>   rename the therapist
  /history       show the whole conversation
  /copy          copy the conversation as Markdown
  /reset         clear the conversation
  /quit          leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func runChat(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := setup(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	r := newREPL(env, cmd.OutOrStdout())
	r.greet()
	return r.run(cmd.Context(), cmd.InOrStdin())
}

type repl struct {
	env   *environment
	out   io.Writer
	width int
	plain bool
	copy  func(string) error
}

// newREPL styles output only when stdout is a terminal and --plain is unset.
func newREPL(env *environment, out io.Writer) *repl {
	width := widthFlag
	if width <= 0 {
		width = getTerminalWidth()
	}
	return &repl{
		env:   env,
		out:   out,
		width: width,
		plain: plainFlag || !isStdoutTTY(),
		copy:  clipboard.WriteAll,
	}
}

func (r *repl) greet() {
	fmt.Fprintf(r.out, "%s\n%s (type /quit to leave)\n\n", r.env.persona.OpeningLine, r.env.persona.Description)
}

func (r *repl) notice(msg string) {
	if !r.plain {
		msg = noticeStyle.Render(msg)
	}
	fmt.Fprintln(r.out, msg)
}

func (r *repl) warn(msg string) {
	if !r.plain {
		msg = warningStyle.Render(msg)
	}
	fmt.Fprintln(r.out, msg)
}

func (r *repl) prompt() {
	if r.plain {
		fmt.Fprint(r.out, "> ")
		return
	}
	fmt.Fprint(r.out, promptStyle.Render("you ›")+" ")
}

// run reads one utterance per line until EOF or /quit.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		r.prompt()
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return errors.Wrap(scanner.Err(), "read input")
		}

		quit, err := r.handle(ctx, scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// handle processes one line of input and reports whether to stop.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false, nil
	}

	if strings.HasPrefix(input, "/") {
		return r.command(ctx, input)
	}

	turn, err := r.env.sessions.Exchange(ctx, r.env.sessionID, line, r.env.responder)
	if err != nil {
		return false, err
	}

	session, err := r.env.sessions.GetSession(ctx, r.env.sessionID)
	if err != nil {
		return false, err
	}
	return false, r.print(render.Turn(session.AssistantName, turn))
}

func (r *repl) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/name":
		current, err := r.env.sessions.RenameAssistant(ctx, r.env.sessionID, arg)
		if err != nil {
			return false, err
		}
		r.notice(fmt.Sprintf("Your therapist is named %s.", current))

	case "/reset":
		if err := r.env.sessions.ResetSession(ctx, r.env.sessionID); err != nil {
			return false, err
		}
		r.notice("Conversation cleared.")

	case "/history":
		session, err := r.env.sessions.GetSession(ctx, r.env.sessionID)
		if err != nil {
			return false, err
		}
		return false, r.print(render.Markdown(session))

	case "/copy":
		session, err := r.env.sessions.GetSession(ctx, r.env.sessionID)
		if err != nil {
			return false, err
		}
		if err := r.copy(render.Markdown(session)); err != nil {
			r.warn(fmt.Sprintf("Failed to copy to clipboard: %v", err))
			return false, nil
		}
		r.notice("Conversation copied to clipboard.")

	default:
		r.warn(fmt.Sprintf("Unknown command %s. Try /name, /history, /copy, /reset or /quit.", name))
	}
	return false, nil
}

func (r *repl) print(markdown string) error {
	if r.plain {
		_, err := io.WriteString(r.out, markdown)
		return err
	}

	styled, err := render.Terminal(markdown, r.width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.out, styled)
	return err
}
