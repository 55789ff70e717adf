package errors

import "errors"

// With layers detail on top of a sentinel error. The result matches both
// errors under errors.Is / errors.As, and renders as "detail: sentinel".
func With(sentinel, detail error) error {
	if sentinel == nil && detail == nil {
		return nil
	}
	if detail == nil {
		return sentinel
	}
	if sentinel == nil {
		return detail
	}
	return union{sentinel: sentinel, detail: detail}
}

type union struct {
	sentinel error
	detail   error
}

func (u union) Error() string {
	return u.detail.Error() + ": " + u.sentinel.Error()
}

func (u union) Unwrap() []error {
	return []error{u.detail, u.sentinel}
}

// Is short-circuits the common case of matching the sentinel directly,
// without walking the detail chain first.
func (u union) Is(target error) bool {
	return errors.Is(u.sentinel, target)
}
