/*
Package tls builds the server-side TLS configuration for the vigil API.

NewServerConfig turns the server.tls section into a *crypto/tls.Config:

	tlsCfg, err := tls.NewServerConfig(ctx, cfg.Server.TLS, logger)
	if err != nil {
		return err
	}
	ln = cryptotls.NewListener(ln, tlsCfg)

The certificate is served through a CertificateReloader, which checks the
certificate and key files every ReloadInterval and swaps in the new pair
when either file changes. A pair that fails to load or is expired is
logged and the previous certificate stays in use.

Setting ClientCAFile turns on mutual TLS. ClientAuth selects the policy:

  - require: a client certificate signed by the CA is mandatory
  - request: a certificate is requested but not verified
  - verify_if_given: a certificate is optional but verified when sent
*/
package tls
