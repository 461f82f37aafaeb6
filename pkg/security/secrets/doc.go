/*
Package secrets resolves the api_key references of model_list deployments.

# Reference syntax

  - os.environ/NAME or env:NAME reads the environment variable NAME
  - file:/path reads the file at path (whitespace trimmed)
  - anything else is used literally as the key

Resolved values are cached in an expiring LRU so each upstream call does
not hit the filesystem. Refresh purges the cache; the gateway calls it on
configuration reload.

# Basic Usage

	m := secrets.NewDefaultManager()
	key, err := m.Resolve(ctx, "os.environ/OPENAI_API_KEY")
*/
package secrets
