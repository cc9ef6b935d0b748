// Package schema packages the embedded Draft-7 JSON Schema used to validate
// job.yml files as a compiled-in data resource rather than a path read at
// runtime.
package schema

import (
	_ "embed"
)

//go:embed job.schema.json
var JobSchemaJSON []byte
