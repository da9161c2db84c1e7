// Package hcl_adapter loads the host configuration from HCL files.
//
// Expressions are evaluated with two variables in scope: `env`, an object
// holding the process environment, and `host`, with the attributes `goos`,
// `goarch` and `ext` (the native shared library extension). The functions
// `format`, `join`, `lower`, `upper` and `coalesce` are available as well.
//
//	plugin "strings" {
//	  path    = "${env.NYX_HOME}/plugins/strings${host.ext}"
//	  backend = "c"
//	}
//
//	directory {
//	  path     = "plugins"
//	  optional = true
//	}
//
//	notify {
//	  url       = "ws://localhost:3000/socket.io/"
//	  event     = "nyx:loaded"
//	  ack_event = "nyx:ack"
//	  timeout   = "5s"
//	}
package hcl_adapter
