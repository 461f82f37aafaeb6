// Package registry holds the immutable set of upstream deployments and the
// model groups that map client-facing model names onto them.
//
// A Registry is built once from configuration and never changes. Reloading
// configuration builds a new Registry and installs it in a Store, which
// readers consult on every request.
package registry
