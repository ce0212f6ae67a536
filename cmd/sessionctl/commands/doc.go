// Package commands implements the sessionctl command tree: listing,
// inspecting, deleting and flushing stored sessions, and backend statistics.
//
// Configuration is layered: defaults, then an optional YAML file, then
// GOSESSION_* environment variables (a .env file is loaded first when
// present), then command line flags.
package commands
