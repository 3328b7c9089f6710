package berrydb

import (
	"github.com/berrydb/berrydb/config"
)

// CreateFromConfig loads a TOML configuration file and creates a Pool from
// it, for embedders that prefer a config file over constructing
// PoolOptions in Go code. See config.Load for the file's shape.
func CreateFromConfig(path string) (*Pool, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return Create(PoolOptions{
		PageShift:    f.PageShift,
		PageCapacity: f.PagePoolSize,
	})
}

// StoreOptionsFromConfig derives StoreOptions from a loaded config file's
// store_defaults table, for callers that otherwise built their Pool via
// CreateFromConfig and want the same file to govern OpenStore calls.
func StoreOptionsFromConfig(f config.File) StoreOptions {
	return StoreOptions{
		CreateIfMissing: f.StoreDefaults.CreateIfMissing,
		ErrorIfExists:   f.StoreDefaults.ErrorIfExists,
	}
}
