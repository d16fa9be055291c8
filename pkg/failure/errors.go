package failure

type Severity int

// pipeline control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}

// UserFacing is implemented by errors whose message may be shown to an end user
// verbatim (form errors, CLI output). Everything else is logged only.
type UserFacing interface {
	error
	UserMessage() string
}

// UserMessage returns the user-visible message carried by err, if any.
func UserMessage(err error) (string, bool) {
	for err != nil {
		if uf, ok := err.(UserFacing); ok {
			return uf.UserMessage(), true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = unwrapper.Unwrap()
	}
	return "", false
}
