// Package config loads BerryDB pool and store options from a TOML file,
// for embedders that prefer a configuration file over constructing
// PoolOptions in Go code.
//
// Grounded on zhukovaskychina-xmysql-server's dependency on
// github.com/pelletier/go-toml for its own server configuration; that repo
// only reaches the query subpackage directly, so the parse-into-struct
// path below follows go-toml's own documented Tree.Unmarshal usage rather
// than a specific call site in the pack.
package config

import (
	"fmt"

	"github.com/berrydb/berrydb/internal/errs"

	"github.com/pelletier/go-toml"
)

// StoreDefaults mirrors store.Options' file-configurable fields.
type StoreDefaults struct {
	CreateIfMissing bool `toml:"create_if_missing"`
	ErrorIfExists   bool `toml:"error_if_exists"`
}

// File is the shape of a BerryDB TOML configuration file.
type File struct {
	PageShift     int           `toml:"page_shift"`
	PagePoolSize  int           `toml:"page_pool_size"`
	StoreDefaults StoreDefaults `toml:"store_defaults"`
}

// Load parses a TOML configuration file at path.
//
// Returns ErrInvalidArgument if page_shift or page_pool_size is missing or
// non-positive; the pool and store constructors have no sane default for
// either.
func Load(path string) (File, error) {
	var f File

	tree, err := toml.LoadFile(path)
	if err != nil {
		return f, fmt.Errorf("load config %s: %w", path, errs.ErrIoError)
	}
	if err := tree.Unmarshal(&f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, errs.ErrInvalidArgument)
	}

	if f.PageShift <= 0 {
		return f, fmt.Errorf("config %s: page_shift must be positive: %w", path, errs.ErrInvalidArgument)
	}
	if f.PagePoolSize <= 0 {
		return f, fmt.Errorf("config %s: page_pool_size must be positive: %w", path, errs.ErrInvalidArgument)
	}
	return f, nil
}
