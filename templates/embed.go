// Package templates embeds the default configuration and the instruction
// texts printed by the resolver.
package templates

import "embed"

//go:embed config.yaml instructions
var FS embed.FS
