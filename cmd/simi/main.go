// Command simi is the peer-to-peer terminal messenger's entry point.
//
// Usage:
//
//	simi [flags]
//
// Flags:
//
//	--port       TCP listening port (default: config/1337)
//	--assets     cover-image assets directory (default: config/~/.simi/assets)
//	--config     path to the TOML config file (default: ~/.simi/conf.toml)
//	--verbosity  log level 0-5 (default: 3)
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/teldufalsari/simi/internal/app"
	"github.com/teldufalsari/simi/internal/config"
	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/events"
	"github.com/teldufalsari/simi/internal/session"
	"github.com/teldufalsari/simi/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning a process exit code. It takes
// CLI arguments without the program name so it can be tested in isolation.
func run(args []string) int {
	flags, exit, code := parseFlags(args)
	if exit {
		return code
	}

	sink := events.NewTerminalSink(os.Stdout)
	log := telemetry.New(sink, flags.verbosity, "main")

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		log.Warn("no usable config file, starting from defaults", "path", flags.configPath, "err", err)
		cfg = config.Default()
	}
	if flags.portSet {
		cfg.Port = flags.port
	}
	if flags.assetsSet {
		cfg.Assets = flags.assets
	}

	key, err := session.GenerateIdentity()
	if err != nil {
		fmt.Fprintln(os.Stderr, errcode.Describe(err))
		return 1
	}

	a := app.New(cfg, flags.configPath, key, sink, telemetry.New(sink, flags.verbosity, "app"))

	go waitForSignal(a)

	return a.Run()
}

// waitForSignal injects a graceful Exit command on SIGINT/SIGTERM, letting
// the App's single consumer goroutine run the same Idle/Waiting/Connected
// teardown path a typed "exit" command would.
func waitForSignal(a *app.App) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	a.RequestExit()
}

type cliFlags struct {
	configPath string
	port       uint16
	portSet    bool
	assets     string
	assetsSet  bool
	verbosity  int
}

// parseFlags parses CLI arguments into cliFlags: a testable function
// returning (result, exit, code) rather than calling os.Exit directly.
func parseFlags(args []string) (cliFlags, bool, int) {
	flags := cliFlags{configPath: config.DefaultPath, verbosity: 3}
	fs := flag.NewFlagSet("simi", flag.ContinueOnError)

	fs.StringVar(&flags.configPath, "config", flags.configPath, "path to the TOML config file")
	fs.Var(&uint16Value{p: &flags.port, set: &flags.portSet}, "port", "TCP listening port")
	fs.Func("assets", "cover-image assets directory", func(s string) error {
		flags.assets = s
		flags.assetsSet = true
		return nil
	})
	fs.IntVar(&flags.verbosity, "verbosity", flags.verbosity, "log level 0-5 (0-1=errors only, 4-5=debug)")

	if err := fs.Parse(args); err != nil {
		return flags, true, 2
	}
	return flags, false, 0
}

// uint16Value implements flag.Value for the --port flag; the flag
// package has no uint16 support of its own.
type uint16Value struct {
	p   *uint16
	set *bool
}

func (v *uint16Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(*v.p), 10)
}

func (v *uint16Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port %q", s)
	}
	*v.p = uint16(n)
	*v.set = true
	return nil
}
