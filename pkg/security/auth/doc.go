/*
Package auth provides API key authentication for the vigil HTTP API.

Keys come from the server.auth section of the configuration. The validator
keeps only SHA-256 digests of the keys:

	validator, err := auth.NewValidator(cfg.Server.Auth.Keys)
	if err != nil {
		return err
	}
	mw := auth.NewMiddleware(validator, cfg.Server.Auth)
	mux.Handle("/v1/", mw.Handle(api))

With the default configuration the key is read from the Authorization
header with the Bearer scheme:

	Authorization: Bearer <key>

Handlers can read the authenticated caller:

	if p, ok := auth.FromContext(r.Context()); ok {
		logger.Info("request", "api_key", p.Name)
	}

Rejected requests get 401. Use WithErrorHandler to control the body.
*/
package auth
