// Package secret resolves credentials referenced from configuration.
//
// Config values may contain ${VAR} environment references, which must all
// be set, and secret references of the form
//
//	secretref:<provider>:<ref>
//
// either as the whole value or inline. Two providers are built in: "file"
// reads a file (trailing newline trimmed) and "env" reads an environment
// variable. Admin API keys and the JWT secret are resolved this way so they
// need not be written into listicons.toml.
package secret
