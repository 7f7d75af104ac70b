/*
Package security groups the transport and access controls of the vigil API.

# TLS

The tls subpackage builds a crypto/tls configuration from the server.tls
section, with certificate hot reload and optional client certificates:

	tlsCfg, err := tls.NewServerConfig(ctx, cfg.Server.TLS, logger)

# API Keys

The auth subpackage checks a static set of API keys on every /v1 request:

	validator, err := auth.NewValidator(cfg.Server.Auth.Keys)
	mw := auth.NewMiddleware(validator, cfg.Server.Auth)
	http.Handle("/v1/", mw.Handle(handler))

# Secrets

The secrets subpackage resolves ${secret:name} references in key values
so the keys themselves stay out of the configuration file:

	r := secrets.NewResolver(secrets.NewFileProvider(dir), secrets.NewEnvProvider(secrets.DefaultEnvPrefix))
	keys, err := r.ResolveKeys(ctx, cfg.Server.Auth.Keys)
*/
package security
