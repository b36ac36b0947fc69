package httpapi

import "crypto/tls"

// tlsConfig builds the client TLS config. UniFi Protect controllers
// overwhelmingly run self-signed certs out of the box, so
// insecureSkipVerify is a first-class, explicitly-opted-into option
// (UFP_SSL_VERIFY=false) rather than a hack.
func tlsConfig(insecureSkipVerify bool) *tls.Config {
	return &tls.Config{InsecureSkipVerify: insecureSkipVerify}
}
