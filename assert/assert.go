package assert

import "github.com/oomph-ac/doors/oerror"

// IsTrue panics with a formatted DoorError when ok is false. It is meant for programmer errors only,
// never for input that comes off the wire.
func IsTrue(ok bool, message string, args ...any) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}
