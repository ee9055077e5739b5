package setup

import (
	"context"
	"flag"

	isetup "github.com/git-lord1/Mineb/internal/setup"
)

type Options struct {
	DBPath  string
	DataDir string
	NoTLS   bool
}

func Run(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.DBPath, "db", "./data/mineb.db", "sqlite database path")
	fs.StringVar(&opt.DataDir, "data-dir", "./data", "data directory (certs)")
	fs.BoolVar(&opt.NoTLS, "no-tls", false, "skip self-signed TLS certificate generation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return isetup.Run(context.Background(), isetup.Options{
		DBPath:  opt.DBPath,
		DataDir: opt.DataDir,
		NoTLS:   opt.NoTLS,
	})
}
