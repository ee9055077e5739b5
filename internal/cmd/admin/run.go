package admin

import (
	"flag"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/git-lord1/Mineb/internal/adminapi"
	"github.com/git-lord1/Mineb/internal/adminui"
)

type Options struct {
	Addr        string
	TLSInsecure bool
}

func Run(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.Addr, "addr", "https://127.0.0.1:5000", "server address")
	fs.BoolVar(&opt.TLSInsecure, "insecure", false, "skip TLS verification (recommended only for localhost/self-signed)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	insecure := opt.TLSInsecure
	if !insecure {
		insecure = adminui.RequireInsecureByDefault(opt.Addr)
	}

	c, err := adminapi.NewClient(adminapi.ClientOptions{Addr: opt.Addr, Insecure: insecure})
	if err != nil {
		return err
	}

	p := tea.NewProgram(adminui.New(c, opt.Addr), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
