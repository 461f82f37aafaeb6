// Package providerfactory builds upstream providers from registry
// deployments and keeps them in sync with the active registry.
package providerfactory
