package auditsvc

import "errors"

// ErrMalformedEvent marks messages that will never decode and must not be requeued.
var ErrMalformedEvent = errors.New("malformed status event")
