package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/pipeline"
)

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Long: `Chat opens a prompt where each line is answered like 'netpilot ask'.
Type 'exit' or press Esc to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := components(nil)
			if err != nil {
				return err
			}
			m := newChatModel(cmd.Context(), c.Pipeline.Ask)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
}

// askFunc answers one question
type askFunc func(ctx context.Context, question string) (*pipeline.Result, error)

type answerMsg struct {
	question string
	result   *pipeline.Result
	err      error
}

// chatModel is a bubbletea model that answers one question per line
type chatModel struct {
	ctx     context.Context
	ask     askFunc
	input   textinput.Model
	pending bool
	asked   int
}

func newChatModel(ctx context.Context, ask askFunc) chatModel {
	if ctx == nil {
		ctx = context.Background()
	}
	ti := textinput.New()
	ti.Placeholder = "list devices on vlan 101"
	ti.Prompt = "netpilot> "
	ti.CharLimit = 512
	ti.Focus()
	return chatModel{ctx: ctx, ask: ask, input: ti}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.pending {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			switch strings.ToLower(question) {
			case "":
				return m, nil
			case "exit", "quit":
				return m, tea.Quit
			}
			m.input.Reset()
			m.pending = true
			m.asked++
			return m, m.answer(question)
		}

	case answerMsg:
		m.pending = false
		return m, tea.Println(formatAnswer(msg))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) View() string {
	if m.pending {
		return "thinking...\n"
	}
	return m.input.View() + "\n"
}

func (m chatModel) answer(question string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.ask(m.ctx, question)
		return answerMsg{question: question, result: res, err: err}
	}
}

func formatAnswer(msg answerMsg) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", color.CyanString(">"), msg.question)
	switch {
	case msg.err != nil:
		apperrors.DisplayError(&b, msg.err, color.NoColor)
	case msg.result.ArtifactPath != "":
		fmt.Fprintf(&b, "Report written to %s\n", msg.result.ArtifactPath)
	default:
		if msg.result.Decision.FallbackUsed {
			b.WriteString(color.HiBlackString("(no confident match, showing the summary)") + "\n")
		}
		b.Write(msg.result.Output)
	}
	return strings.TrimRight(b.String(), "\n")
}
