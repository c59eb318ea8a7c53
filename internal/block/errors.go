package block

import "fmt"

// DecodeError is a structural failure: malformed bytes, a field of the wrong
// size, or trailing garbage. It is fatal for the affected block and must never
// be confused with a verification failure, which is a rejected-but-expected
// outcome when the server is byzantine.
type DecodeError struct {
	Nature  Nature
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s block: %s", e.Nature, e.Message)
}

func decodeErrorf(nature Nature, format string, args ...interface{}) error {
	return &DecodeError{Nature: nature, Message: fmt.Sprintf(format, args...)}
}
