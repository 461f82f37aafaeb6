/*
Package auth authenticates gateway clients by API key.

Keys are read from the Authorization bearer header, X-API-Key or Api-Key and
checked, in order, against:

  - the master key (general_settings.master_key)
  - configured keys, in plain text or as a bcrypt key_hash
  - virtual keys: "sk-vk-" followed by an HS256 JWT signed with the master
    key, carrying an alias, optional model list and optional expiry

Successful bcrypt and JWT verifications are cached by key fingerprint so the
expensive check runs once per key, not once per request.

	v := auth.NewValidator(cfg.GeneralSettings)
	mw := auth.NewMiddleware(v, nil, logger)
	router.With(mw.Handle).Post("/v1/chat/completions", h)

Keys may restrict the models they can call; handlers check that with
AuthorizeModel once the requested model is known. When no key at all is
configured, authentication is off and requests run as "anonymous".
*/
package auth
