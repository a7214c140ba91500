// Package config carries the embedded default configuration shipped with
// the daemon binary.
package config

import _ "embed"

//go:embed default.yaml
var Default []byte
