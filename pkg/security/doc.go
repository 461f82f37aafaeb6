/*
Package security holds the credential handling of the gateway.

# Secrets

Deployment credentials are references resolved at startup:

	api_key: os.environ/OPENAI_API_KEY
	api_key: file:/run/secrets/openai

	manager := secrets.NewDefaultManager()
	key, err := manager.Resolve(ctx, "os.environ/OPENAI_API_KEY")

Anything that is not a reference is used as a literal value.

# Client Authentication

Clients present the master key, a key from general_settings.keys or a
virtual key signed with the master key:

	validator := auth.NewValidator(cfg.GeneralSettings)
	mw := auth.NewMiddleware(validator, nil, logger)
	r.Use(mw.Handle)
*/
package security
