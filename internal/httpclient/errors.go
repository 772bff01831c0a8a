package httpclient

import "errors"

// ErrInvalidProxyAddress is returned when the proxy address is not in
// "host:port" form.
var ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")
