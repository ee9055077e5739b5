package server

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/git-lord1/Mineb/internal/config"
	"github.com/git-lord1/Mineb/internal/daemon"
	"github.com/git-lord1/Mineb/internal/logging"
	"github.com/git-lord1/Mineb/internal/version"
)

type Options struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool

	DBPath   string
	BindAddr string
	Port     int
}

func Run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var opt Options
	var showVersion bool
	fs.StringVar(&opt.ConfigPath, "config", "", "path to mineb.yaml (when set, other flags are ignored)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&opt.LogLevel, "log-level", "info", "log level: debug|info|warning|error")
	fs.BoolVar(&opt.LogJSON, "log-json", false, "emit JSON logs")
	fs.StringVar(&opt.DBPath, "db", "./data/mineb.db", "sqlite database path")
	fs.StringVar(&opt.BindAddr, "bind", "127.0.0.1", "bind address")
	fs.IntVar(&opt.Port, "port", 5000, "HTTP port")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("mineb server %s\n", version.Version)
		return nil
	}

	var cfg config.Config
	if opt.ConfigPath != "" {
		c, err := config.Load(opt.ConfigPath)
		if err != nil {
			return err
		}
		base := filepath.Dir(opt.ConfigPath)
		c.DB.Path = resolvePath(base, c.DB.Path)
		c.HTTP.TLS.CertPath = resolvePath(base, c.HTTP.TLS.CertPath)
		c.HTTP.TLS.KeyPath = resolvePath(base, c.HTTP.TLS.KeyPath)
		cfg = c
	} else {
		cfg.Log.Level = opt.LogLevel
		cfg.Log.JSON = opt.LogJSON
		cfg.DB.Path = opt.DBPath
		cfg.HTTP.Bind = opt.BindAddr
		cfg.HTTP.Port = opt.Port
		config.ApplyDefaults(&cfg)
		if err := config.Validate(&cfg); err != nil {
			return err
		}
	}

	lg, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.Run(ctx, cfg, lg)
}

func resolvePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
