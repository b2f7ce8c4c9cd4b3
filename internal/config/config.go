// Package config holds simi's process-wide, mutable-at-runtime
// configuration: listening port, asset directory, behavior flags, and the
// contacts book. It is TOML-backed and persisted on explicit Save.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/teldufalsari/simi/internal/errcode"
)

// DefaultPath is the location simi reads and writes its configuration from
// when no override is given on the command line.
const DefaultPath = "~/.simi/conf.toml"

// Config is the process-wide configuration. It is mutable at runtime (the
// contacts map changes as the user runs add/remove) and is only persisted
// back to disk when the user explicitly runs Save.
type Config struct {
	// Port is the TCP port this instance listens on.
	Port uint16 `toml:"port"`

	// Assets is the directory PNG images are picked from for --secret
	// when no --path is given. May start with "~/".
	Assets string `toml:"assets"`

	// DeleteImages, if true, deletes images that were picked from Assets
	// after they carry a secret message. Images supplied via --path are
	// never deleted, regardless of this flag.
	DeleteImages bool `toml:"delete_images"`

	// PickRandomly selects a random image from Assets instead of the
	// first one in alphabetical order.
	PickRandomly bool `toml:"pick_randomly"`

	// Contacts maps a memorable alias to an "ip:port" address.
	Contacts map[string]string `toml:"contacts"`
}

// Default returns the built-in configuration: port 1337, assets under
// ~/.simi, delete_images off, pick_randomly on.
func Default() Config {
	return Config{
		Port:         1337,
		Assets:       "~/.simi/assets",
		DeleteImages: false,
		PickRandomly: true,
		Contacts:     make(map[string]string),
	}
}

// Load reads and parses the TOML file at path (with "~/" expanded against
// the invoking user's home directory). Returns a Filesys AppError on I/O
// or parse failure.
func Load(path string) (Config, error) {
	resolved, err := ExpandHome(path)
	if err != nil {
		return Config{}, errcode.Wrap(errcode.Filesys, "cannot locate home directory", err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, errcode.Wrap(errcode.Filesys, "cannot read config file", err)
	}
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, errcode.Wrap(errcode.Filesys, "cannot parse config file", err)
	}
	if cfg.Contacts == nil {
		cfg.Contacts = make(map[string]string)
	}
	return cfg, nil
}

// Save serializes cfg as TOML and writes it to path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	resolved, err := ExpandHome(path)
	if err != nil {
		return errcode.Wrap(errcode.Filesys, "cannot locate home directory", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return errcode.Wrap(errcode.Filesys, "cannot create config directory", err)
	}
	f, err := os.Create(resolved)
	if err != nil {
		return errcode.Wrap(errcode.Filesys, "cannot create config file", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return errcode.Wrap(errcode.Filesys, "cannot encode config", err)
	}
	return nil
}

// ExpandHome resolves a path that may start with "~/" against the invoking
// user's home directory. Paths that don't start with "~/" pass through
// filepath.Clean unchanged.
func ExpandHome(path string) (string, error) {
	const prefix = "~/"
	if len(path) < len(prefix) || path[:len(prefix)] != prefix {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[len(prefix):]), nil
}

// SortedAliases returns the contact aliases in sorted order, so `list`
// output (and anything else iterating contacts) is deterministic.
func (c *Config) SortedAliases() []string {
	aliases := make([]string, 0, len(c.Contacts))
	for alias := range c.Contacts {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Resolve looks up alias in the contacts book.
func (c *Config) Resolve(alias string) (string, bool) {
	addr, ok := c.Contacts[alias]
	return addr, ok
}

// String implements fmt.Stringer for debugging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{port=%d assets=%q delete_images=%v pick_randomly=%v contacts=%d}",
		c.Port, c.Assets, c.DeleteImages, c.PickRandomly, len(c.Contacts))
}
