// Package ui is the terminal front end: a login form, the main menu and the
// feature pages reachable from it.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bakadesk/bakadesk/internal/auth"
	"github.com/bakadesk/bakadesk/internal/session"
)

// Page identifies what the shell is showing.
type Page string

const (
	PageLogin     Page = "Login"
	PageMenu      Page = "Main Menu"
	PageKomens    Page = "Komens"
	PageAbsence   Page = "Absence"
	PageMarks     Page = "Marks"
	PageSemester  Page = "Semester"
	PageTimetable Page = "Timetable"
	PageHomework  Page = "Homework"
)

// FeaturePages are the entries of the main menu, in display order.
var FeaturePages = []Page{PageKomens, PageAbsence, PageMarks, PageSemester, PageTimetable, PageHomework}

// Focus positions on the login page.
const (
	focusServer = iota
	focusUsername
	focusPassword
	focusRemember
	focusButton
	focusCount
)

// loginResultMsg carries the outcome of a background login back to Update.
type loginResultMsg struct {
	err error
}

// Model is the bubbletea model of the application shell.
type Model struct {
	boot    *session.Bootstrap
	timeout time.Duration
	keys    keyMap
	styles  styles
	help    help.Model

	page Page

	inputs   []textinput.Model
	remember bool
	focus    int

	authenticating bool
	cancel         context.CancelFunc
	spinner        spinner.Model
	loginErr       string
	warning        string

	cursor int
}

// Option configures a Model.
type Option func(*options)

type options struct {
	timeout time.Duration
	out     io.Writer
	noColor bool
}

// WithTimeout bounds each login attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithNoColor renders without colours.
func WithNoColor(noColor bool) Option {
	return func(o *options) { o.noColor = noColor }
}

// WithOutput sets the writer whose terminal capabilities drive styling.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// New builds the shell on the login page, pre-filled from the credentials
// the bootstrap loaded.
func New(boot *session.Bootstrap, opts ...Option) Model {
	o := options{timeout: 30 * time.Second, out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	st := newStyles(o.out, o.noColor)
	creds := boot.Credentials()

	server := newInput("skola.example.cz/bakaweb", creds.Server)
	username := newInput("", creds.Username)
	password := newInput("", creds.Password)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	m := Model{
		boot:     boot,
		timeout:  o.timeout,
		keys:     defaultKeyMap(),
		styles:   st,
		help:     help.New(),
		page:     PageLogin,
		inputs:   []textinput.Model{server, username, password},
		remember: creds.Remember,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(st.Focused)),
	}
	m.inputs[focusServer].Focus()
	return m
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40
	ti.SetValue(value)
	return ti
}

// Page returns the page currently shown.
func (m Model) Page() Page { return m.page }

// Credentials returns the values currently entered in the login form.
func (m Model) Credentials() auth.Credentials {
	return auth.Credentials{
		Server:   strings.TrimSpace(m.inputs[focusServer].Value()),
		Username: strings.TrimSpace(m.inputs[focusUsername].Value()),
		Password: m.inputs[focusPassword].Value(),
		Remember: m.remember,
	}
}

// LoginError returns the message shown under the login form, if any.
func (m Model) LoginError() string { return m.loginErr }

// Authenticating reports whether a login attempt is in flight.
func (m Model) Authenticating() bool { return m.authenticating }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case loginResultMsg:
		return m.finishLogin(msg), nil

	case spinner.TickMsg:
		if !m.authenticating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Force) {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		switch m.page {
		case PageLogin:
			return m.updateLogin(msg)
		case PageMenu:
			return m.updateMenu(msg)
		default:
			return m.updatePage(msg)
		}
	}

	if m.page == PageLogin && !m.authenticating {
		return m.updateFocusedInput(msg)
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.authenticating {
		if key.Matches(msg, m.keys.Cancel) && m.cancel != nil {
			m.cancel()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.startLogin()
	case key.Matches(msg, m.keys.Next):
		return m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		return m.moveFocus(-1)
	case m.focus == focusRemember && key.Matches(msg, m.keys.Toggle):
		m.remember = !m.remember
		return m, nil
	}
	return m.updateFocusedInput(msg)
}

func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	m.focus = (m.focus + delta + focusCount) % focusCount

	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m, cmd
}

func (m Model) startLogin() (tea.Model, tea.Cmd) {
	creds := m.Credentials()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)

	m.authenticating = true
	m.cancel = cancel
	m.loginErr = ""
	m.warning = ""

	boot := m.boot
	login := func() tea.Msg {
		defer cancel()
		_, err := boot.Login(ctx, creds)
		return loginResultMsg{err: err}
	}
	return m, tea.Batch(m.spinner.Tick, login)
}

func (m Model) finishLogin(msg loginResultMsg) Model {
	m.authenticating = false
	m.cancel = nil

	if msg.err != nil || !m.boot.CanEnterMenu() {
		m.loginErr = m.boot.LastError()
		if m.loginErr == "" && msg.err != nil {
			m.loginErr = msg.err.Error()
		}
		return m
	}

	if err := m.boot.SaveError(); err != nil {
		m.warning = fmt.Sprintf("Credentials were not saved: %v", err)
	}
	m.page = PageMenu
	m.cursor = 0
	return m
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(FeaturePages)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		m.page = FeaturePages[m.cursor]
	}
	return m, nil
}

func (m Model) updatePage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.page = PageMenu
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	switch m.page {
	case PageLogin:
		m.viewLogin(&b)
	case PageMenu:
		m.viewMenu(&b)
	default:
		m.viewPage(&b)
	}
	return m.styles.Frame.Render(b.String())
}

func (m Model) viewLogin(b *strings.Builder) {
	b.WriteString(m.styles.Title.Render("Welcome to Bakadesk"))
	b.WriteString("\n")

	labels := []string{"School Server:", "Username:", "Password:"}
	for i, label := range labels {
		style := m.styles.Blurred
		if i == m.focus {
			style = m.styles.Focused
		}
		b.WriteString(style.Inherit(m.styles.Label).Render(label))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}

	check := "[ ]"
	if m.remember {
		check = "[x]"
	}
	rememberStyle := m.styles.Blurred
	if m.focus == focusRemember {
		rememberStyle = m.styles.Focused
	}
	b.WriteString(rememberStyle.Render(check + " Remember credentials"))
	b.WriteString("\n\n")

	button := m.styles.Button
	if m.focus == focusButton {
		button = m.styles.Active
	}
	b.WriteString(button.Render("Login"))
	b.WriteString("\n\n")

	switch {
	case m.authenticating:
		b.WriteString(m.spinner.View() + " Logging in...")
		b.WriteString("\n")
	case m.loginErr != "":
		b.WriteString(m.styles.Error.Render("Login failed: " + m.loginErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys.loginHelp(m.authenticating)))
}

func (m Model) viewMenu(b *strings.Builder) {
	b.WriteString(m.styles.Title.Render(string(PageMenu)))
	b.WriteString("\n")
	for i, p := range FeaturePages {
		if i == m.cursor {
			b.WriteString(m.styles.Active.Render(string(p)))
		} else {
			b.WriteString(m.styles.Button.Render(string(p)))
		}
		b.WriteString("\n")
	}
	if m.warning != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render(m.warning))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys.menuHelp()))
}

func (m Model) viewPage(b *strings.Builder) {
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Page: %s", m.page)))
	b.WriteString("\n")
	b.WriteString(m.styles.Active.Render("Back"))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys.pageHelp()))
}

// Run starts the shell and blocks until the user quits or ctx is done.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if fm, ok := final.(Model); ok && fm.cancel != nil {
		fm.cancel()
	}
	if err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
