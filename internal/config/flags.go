package config

import (
	"flag"
	"io"
)

type flags struct {
	config   string
	debug    bool
	ticks    int
	radius   int
	seed     int64
	gen      string
	db       string
	addr     string
	logFile  string
	setFlags map[string]bool
}

// parseFlags parses args into a fresh FlagSet so Load can be called more than once.
func parseFlags(args []string) (*flags, error) {
	f := &flags{setFlags: make(map[string]bool)}
	fs := flag.NewFlagSet("watersim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.config, "config", "", "Path to config file")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.ticks, "ticks", 0, "Run this many ticks and exit")
	fs.IntVar(&f.radius, "radius", 0, "Chunk load radius")
	fs.Int64Var(&f.seed, "seed", 0, "World seed")
	fs.StringVar(&f.gen, "generator", "", "World generator (flat, noise)")
	fs.StringVar(&f.db, "db", "", "Water database path")
	fs.StringVar(&f.addr, "addr", "", "Viewer websocket address")
	fs.StringVar(&f.logFile, "log-file", "", "Log file path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.setFlags[fl.Name] = true })
	return f, nil
}

// apply applies CLI flag overrides to the config.
func (f *flags) apply(cfg *Config) {
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if f.ticks > 0 {
		cfg.Simulation.Ticks = f.ticks
	}
	if f.setFlags["radius"] {
		cfg.Simulation.LoadRadius = f.radius
	}
	if f.setFlags["seed"] {
		cfg.World.Seed = f.seed
	}
	if f.gen != "" {
		cfg.World.Generator = f.gen
	}
	if f.setFlags["db"] {
		cfg.Persistence.Path = f.db
	}
	if f.setFlags["addr"] {
		cfg.Broadcast.Addr = f.addr
	}
	if f.logFile != "" {
		cfg.Logging.LogFile = f.logFile
	}
}
