package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/questforge/questforge/pkg/game"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *apiClient
	genre        game.Genre
	state        *game.GameState
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	transcript   []transcriptEntry
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Genre selection state
	showGenreModal bool
	selectedGenre  int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type transcriptEntry struct {
	role    string // "user" or "assistant"
	content string
}

type turnResponseMsg struct {
	reply *turnReply
	err   error
}

type stateLoadedMsg struct {
	reply *stateReply
	err   error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:         cfg,
		client:         client,
		textarea:       ta,
		chatViewport:   chatVp,
		metaViewport:   metaVp,
		ready:          false,
		showGenreModal: true,
		selectedGenre:  0,
	}
}

// writeChatContent rebuilds the transcript panel for the current width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("QUESTFORGE") + "\n\n")
	content.WriteString(fmt.Sprintf("Playing as %s in a %s world.\n", m.config.Player, m.genre.Label()))
	content.WriteString("Type your commands below. Try \"look around\" or \"go north\".\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, entry := range m.transcript {
		switch entry.role {
		case "assistant":
			prefix := narratorStyle.Render(AgentName + ": ")
			content.WriteString(prefix + wordwrap.String(entry.content, max(chatWidth-len(AgentName)-2, 10)) + "\n\n")
		case "user":
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(entry.content, max(chatWidth-6, 10)) + "\n\n")
		case "error":
			content.WriteString(errorStyle.Render("Error: "+entry.content) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CHARACTER") + "\n\n")

	gs := m.state
	if gs == nil {
		content.WriteString("No state yet.\nSend a command to begin.\n")
	} else {
		if gs.Name != "" {
			content.WriteString(gs.Name + "\n")
		}
		if gs.Class != "" || gs.Race != "" {
			content.WriteString(strings.TrimSpace(gs.Race+" "+gs.Class) + "\n")
		}
		content.WriteString("\n")
		content.WriteString(fmt.Sprintf("Turn %s, Day %s (%s)\n", gs.Turn, gs.Day, gs.TimePeriod))
		content.WriteString("Weather: " + gs.Weather + "\n\n")
		content.WriteString(fmt.Sprintf("HP %s  AC %s  Lvl %s\n", gs.Health, gs.ArmorClass, gs.Level))
		content.WriteString(fmt.Sprintf("Gold %s  XP %s\n\n", gs.Gold, gs.XP))

		content.WriteString("Location:\n")
		content.WriteString(gs.Location + "\n\n")

		if len(gs.Exits) > 0 {
			content.WriteString("Exits:\n")
			dirs := make([]string, 0, len(gs.Exits))
			for d := range gs.Exits {
				dirs = append(dirs, d)
			}
			sort.Strings(dirs)
			for _, d := range dirs {
				content.WriteString(fmt.Sprintf("• %s → %s\n", d, gs.Exits[d]))
			}
			content.WriteString("\n")
		}

		if gs.Quest != "" {
			content.WriteString("Quest:\n" + gs.Quest + "\n\n")
		}

		if len(gs.Inventory) > 0 {
			content.WriteString("Inventory:\n")
			for _, item := range gs.Inventory {
				content.WriteString("• " + item + "\n")
			}
			content.WriteString("\n")
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /stats: Attributes\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showGenreModal {
		return m.updateGenreModal(msg)
	}
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.writeChatContent()
		m.writeMetadata()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0
			m.transcript = append(m.transcript, transcriptEntry{role: "user", content: input})
			m.writeChatContent()

			return m, tea.Batch(m.sendTurn(input), progressTick())
		}

	case turnResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.transcript = append(m.transcript, transcriptEntry{role: "error", content: msg.err.Error()})
		} else {
			m.transcript = append(m.transcript, transcriptEntry{role: "assistant", content: msg.reply.Narrative})
			if msg.reply.GameState != nil {
				m.state = msg.reply.GameState
			}
		}
		m.writeChatContent()
		m.writeMetadata()
		m.chatViewport.GotoBottom()
		return m, nil

	case stateLoadedMsg:
		// A load failure is not fatal; the game starts fresh.
		if msg.err == nil && msg.reply.GameState != nil {
			m.state = msg.reply.GameState
			m.transcript = append(m.transcript, transcriptEntry{
				role:    "assistant",
				content: fmt.Sprintf("Resuming at %s, turn %d.", m.state.Location, msg.reply.Turns),
			})
			m.writeChatContent()
			m.writeMetadata()
			m.chatViewport.GotoBottom()
		}
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /help - Show this help
• /stats - Show character attributes
• Ctrl+C - Quit game

How to play:
• Type your actions and press Enter
• "go north" (or just "n") moves between locations
• "start a new game" wipes this genre and begins fresh
`
		m.transcript = append(m.transcript, transcriptEntry{role: "assistant", content: helpText})
		m.writeChatContent()

	case "/stats":
		var statsText strings.Builder
		statsText.WriteString("Attributes:\n")
		if m.state == nil || len(m.state.Stats) == 0 {
			statsText.WriteString("No attributes are set yet.\n")
		} else {
			keys := make([]string, 0, len(m.state.Stats))
			for k := range m.state.Stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				statsText.WriteString(fmt.Sprintf("• %s = %s\n", k, m.state.Stats[k]))
			}
		}
		m.transcript = append(m.transcript, transcriptEntry{role: "assistant", content: statsText.String()})
		m.writeChatContent()
	}

	m.textarea.Reset()
	return m, nil
}

func (m ConsoleUI) sendTurn(command string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.client.SendTurn(m.genre, command)
		return turnResponseMsg{reply, err}
	}
}

func (m ConsoleUI) loadState() tea.Cmd {
	return func() tea.Msg {
		reply, err := m.client.LoadState(m.genre)
		return stateLoadedMsg{reply, err}
	}
}

func (m ConsoleUI) updateGenreModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	genres := game.Genres()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selectedGenre > 0 {
				m.selectedGenre--
			}
		case tea.KeyDown:
			if m.selectedGenre < len(genres)-1 {
				m.selectedGenre++
			}
		case tea.KeyEnter:
			m.genre = genres[m.selectedGenre]
			m.showGenreModal = false
			if m.width > 0 && m.height > 0 {
				m.resize()
				m.ready = true
			}
			m.writeChatContent()
			m.writeMetadata()
			m.textarea.Focus()
			return m, tea.Batch(textarea.Blink, m.loadState())
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderGenreModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	genres := game.Genres()

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Choose Your World"))
	content.WriteString("\n\n")

	for i, g := range genres {
		label := fmt.Sprintf("%s (%s)", g.String(), g.Label())
		if i == m.selectedGenre {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showGenreModal {
		return m.renderGenreModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar draws the animated bar shown while a turn is in
// flight.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
