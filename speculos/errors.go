package speculos

import "errors"

// Error kinds surfaced by the client. Wrapped causes stay reachable through
// errors.Is / errors.As.
var (
	// ErrProcess tags failures launching, supervising or signaling the
	// emulator subprocess.
	ErrProcess = errors.New("speculos process")

	// ErrTransport tags HTTP transport failures and malformed or rejected
	// API responses.
	ErrTransport = errors.New("speculos transport")
)
