package config

import (
	"context"
)

// Loader is the interface for a format-specific script loader.
type Loader interface {
	// Load reads every script file under paths and translates them, in
	// path order, into a single Script.
	Load(ctx context.Context, paths ...string) (*Script, error)
}
