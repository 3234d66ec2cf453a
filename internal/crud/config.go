package crud

import (
	"fmt"
	"strings"
)

// Config selects which operations a store exposes. A false field means the
// store is built without that capability.
type Config struct {
	Create  bool
	ReadAll bool
	ReadOne bool
	Update  bool
	Delete  bool
}

// Presets mirror the common component configurations: everything, read
// only, and read plus delete.
var presets = map[string]Config{
	"all":         {Create: true, ReadAll: true, ReadOne: true, Update: true, Delete: true},
	"read":        {ReadAll: true, ReadOne: true},
	"read-delete": {ReadAll: true, ReadOne: true, Delete: true},
	"none":        {},
}

// AllEnabled returns a config with every operation enabled.
func AllEnabled() Config {
	return presets["all"]
}

// Enabled reports whether op is part of the config.
func (c Config) Enabled(op Op) bool {
	switch op {
	case OpCreate:
		return c.Create
	case OpReadAll:
		return c.ReadAll
	case OpReadOne:
		return c.ReadOne
	case OpUpdate:
		return c.Update
	case OpDelete:
		return c.Delete
	default:
		return false
	}
}

// With returns a copy of the config with op enabled.
func (c Config) With(op Op) Config {
	switch op {
	case OpCreate:
		c.Create = true
	case OpReadAll:
		c.ReadAll = true
	case OpReadOne:
		c.ReadOne = true
	case OpUpdate:
		c.Update = true
	case OpDelete:
		c.Delete = true
	}
	return c
}

// Ops lists the enabled operations in declaration order.
func (c Config) Ops() []Op {
	var ops []Op
	for _, op := range AllOps() {
		if c.Enabled(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// String renders the config as a comma separated op list.
func (c Config) String() string {
	ops := c.Ops()
	if len(ops) == 0 {
		return "none"
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return strings.Join(names, ",")
}

// ParseConfig parses a comma separated list of operation names and presets
// ("all", "read", "read-delete", "none").
func ParseConfig(s string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(s) == "" {
		return cfg, fmt.Errorf("parse config: %w: empty operation list", ErrUnknownOp)
	}
	for _, token := range strings.Split(s, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if preset, ok := presets[token]; ok {
			for _, op := range preset.Ops() {
				cfg = cfg.With(op)
			}
			continue
		}
		op, err := ParseOp(token)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg = cfg.With(op)
	}
	return cfg, nil
}
