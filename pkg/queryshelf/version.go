// Package queryshelf holds build metadata for the queryshelf module.
package queryshelf

// Version is the release version, overridable at link time with
// -ldflags "-X github.com/mesh-intelligence/queryshelf/pkg/queryshelf.Version=...".
var Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/queryshelf"
