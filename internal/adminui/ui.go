// Package adminui implements the interactive admin TUI using Bubble Tea.
package adminui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/git-lord1/Mineb/internal/adminapi"
)

// state represents the current screen in the admin UI.
type state int

const (
	stateLogin state = iota
	stateUsers
	stateNewUser
	stateSetPassword
)

// Model holds all UI state for the admin TUI.
type Model struct {
	client *adminapi.Client
	addr   string

	st  state
	err string

	pass textinput.Model

	users   []adminapi.User
	userLst list.Model

	newUsername textinput.Model
	newPassword textinput.Model

	setPw textinput.Model
}

// New constructs a UI model and initializes inputs and lists.
func New(client *adminapi.Client, addr string) Model {
	pass := textinput.New()
	pass.Placeholder = "Admin password"
	pass.EchoMode = textinput.EchoPassword
	pass.Focus()
	pass.Prompt = "Password: "

	lst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	lst.Title = "Accounts"

	m := Model{client: client, st: stateLogin, pass: pass, userLst: lst}
	m.addr = redactAddr(addr)

	m.newUsername = textinput.New()
	m.newUsername.Placeholder = "username"
	m.newUsername.Prompt = "Username: "
	m.newPassword = textinput.New()
	m.newPassword.Placeholder = "password"
	m.newPassword.EchoMode = textinput.EchoPassword
	m.newPassword.Prompt = "Password: "

	m.setPw = textinput.New()
	m.setPw.Placeholder = "new password"
	m.setPw.EchoMode = textinput.EchoPassword
	m.setPw.Prompt = "New password: "

	return m
}

// Init returns the initial command for the Bubble Tea runtime.
func (m Model) Init() tea.Cmd {
	return nil
}

type errMsg string
type usersMsg []adminapi.User
type okMsg struct{}

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.userLst.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case errMsg:
		m.err = string(msg)
		return m, nil
	case usersMsg:
		m.users = []adminapi.User(msg)
		items := make([]list.Item, 0, len(m.users))
		for _, u := range m.users {
			items = append(items, userItem(u))
		}
		m.userLst.SetItems(items)
		m.err = ""
		return m, nil
	case okMsg:
		m.err = ""
		if m.st == stateLogin {
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		}
		return m, nil
	}

	switch m.st {
	case stateLogin:
		var cmd tea.Cmd
		m.pass, cmd = m.pass.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "enter":
				pw := m.pass.Value()
				m.pass.SetValue("")
				return m, tea.Batch(cmd, loginCmd(m.client, pw))
			case "ctrl+c", "q":
				return m, tea.Quit
			}
		}
		return m, cmd

	case stateUsers:
		var cmd tea.Cmd
		m.userLst, cmd = m.userLst.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "r":
				return m, refreshUsersCmd(m.client)
			case "n":
				m.st = stateNewUser
				m.err = ""
				m.newUsername.SetValue("")
				m.newPassword.SetValue("")
				m.newUsername.Focus()
				return m, nil
			case "p":
				_, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				m.st = stateSetPassword
				m.err = ""
				m.setPw.SetValue("")
				m.setPw.Focus()
				return m, nil
			}
		}
		return m, cmd

	case stateNewUser:
		return m.updateNewUser(msg)
	case stateSetPassword:
		return m.updateSetPassword(msg)
	default:
		return m, nil
	}
}

// View renders the current screen as a string.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("mineb admin")
	if m.addr != "" {
		b.WriteString(" (" + m.addr + ")")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateLogin:
		b.WriteString("Login\n")
		b.WriteString(m.pass.View())
		b.WriteString("\n\n")
		b.WriteString("Enter to login. q to quit.\n")
	case stateUsers:
		b.WriteString(m.userLst.View())
		b.WriteString("\n")
		b.WriteString("Keys: n=new p=set-pass r=refresh q=quit\n")
	case stateNewUser:
		b.WriteString("Create account\n\n")
		b.WriteString(m.newUsername.View() + "\n")
		b.WriteString(m.newPassword.View() + "\n\n")
		b.WriteString("Enter=save  esc=back\n")
	case stateSetPassword:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("Set password for: " + u.Username + "\n\n")
		}
		b.WriteString(m.setPw.View())
		b.WriteString("\n\nEnter=save  esc=back\n")
	}

	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}

	return b.String()
}

type userItem adminapi.User

func (u userItem) Title() string { return u.Username }
func (u userItem) Description() string {
	created := time.Unix(u.CreatedAt, 0).UTC().Format("2006-01-02")
	return fmt.Sprintf("tokens=%d created=%s", u.Tokens, created)
}
func (u userItem) FilterValue() string { return u.Username }

// selectedUser returns the currently highlighted user list entry.
func (m *Model) selectedUser() (adminapi.User, bool) {
	if m.userLst.SelectedItem() == nil {
		return adminapi.User{}, false
	}
	if it, ok := m.userLst.SelectedItem().(userItem); ok {
		return adminapi.User(it), true
	}
	return adminapi.User{}, false
}

func loginCmd(c *adminapi.Client, password string) tea.Cmd {
	return func() tea.Msg {
		if err := c.LoginAdmin(password); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func refreshUsersCmd(c *adminapi.Client) tea.Cmd {
	return func() tea.Msg {
		users, err := c.ListUsers()
		if err != nil {
			return errMsg(err.Error())
		}
		return usersMsg(users)
	}
}

// updateNewUser handles input while creating an account.
func (m Model) updateNewUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		case "enter":
			createCmd := func() tea.Cmd {
				return func() tea.Msg {
					_, err := m.client.CreateUser(m.newUsername.Value(), m.newPassword.Value())
					if err != nil {
						return errMsg(err.Error())
					}
					return okMsg{}
				}
			}()
			m.st = stateUsers
			return m, tea.Batch(createCmd, refreshUsersCmd(m.client))
		}
	}

	// Focus order: username -> password
	var cmd tea.Cmd
	if m.newUsername.Focused() {
		m.newUsername, cmd = m.newUsername.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newUsername.Blur()
			m.newPassword.Focus()
		}
		return m, cmd
	}
	m.newPassword, cmd = m.newPassword.Update(msg)
	return m, cmd
}

// updateSetPassword handles input while setting an account password.
func (m Model) updateSetPassword(msg tea.Msg) (tea.Model, tea.Cmd) {
	u, ok := m.selectedUser()
	if !ok {
		m.st = stateUsers
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, nil
		case "enter":
			cmd := func() tea.Cmd {
				return func() tea.Msg {
					if err := m.client.SetUserPassword(u.ID, m.setPw.Value()); err != nil {
						return errMsg(err.Error())
					}
					return okMsg{}
				}
			}()
			m.st = stateUsers
			return m, tea.Batch(cmd, refreshUsersCmd(m.client))
		}
	}
	var cmd tea.Cmd
	m.setPw, cmd = m.setPw.Update(msg)
	return m, cmd
}

func redactAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.Scheme + "://" + u.Host
}

func RequireInsecureByDefault(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
