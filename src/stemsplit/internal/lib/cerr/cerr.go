package cerr

import (
	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

type F = log.Fields

// ErrorContext accumulates log fields, marks and a cause, then produces an
// error with Error. The zero value is usable.
type ErrorContext struct {
	fields F
	marks  []error
	cause  error
}

func Field(key string, value any) ErrorContext {
	return ErrorContext{}.Field(key, value)
}

func Fields(fields F) ErrorContext {
	return ErrorContext{}.Fields(fields)
}

func Wrap(err error) ErrorContext {
	return ErrorContext{}.Wrap(err)
}

func Mark(mark error) ErrorContext {
	return ErrorContext{}.Mark(mark)
}

func Error(msg string) error {
	return ErrorContext{}.errorWithDepth(1, msg)
}

func (c ErrorContext) Field(key string, value any) ErrorContext {
	return c.Fields(F{key: value})
}

func (c ErrorContext) Fields(fields F) ErrorContext {
	merged := make(F, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	c.fields = merged
	return c
}

func (c ErrorContext) Wrap(err error) ErrorContext {
	c.cause = err
	return c
}

func (c ErrorContext) Mark(mark error) ErrorContext {
	c.marks = append(append([]error(nil), c.marks...), mark)
	return c
}

func (c ErrorContext) Error(msg string) error {
	return c.errorWithDepth(1, msg)
}

func (c ErrorContext) errorWithDepth(depth int, msg string) error {
	var err error
	if c.cause != nil {
		err = errors.WrapWithDepth(depth+1, c.cause, msg)
	} else {
		err = errors.NewWithDepth(depth+1, msg)
	}

	for _, mark := range c.marks {
		err = errors.Mark(err, mark)
	}

	if len(c.fields) > 0 {
		err = &fieldError{cause: err, fields: c.fields}
	}

	return err
}

// fieldError carries structured fields down the chain so Log can surface them.
type fieldError struct {
	cause  error
	fields F
}

func (f *fieldError) Error() string {
	return f.cause.Error()
}

func (f *fieldError) Unwrap() error {
	return f.cause
}

func (f *fieldError) Cause() error {
	return f.cause
}

// CollectFields gathers every field attached anywhere in the chain. Outer
// fields win over inner ones with the same key.
func CollectFields(err error) F {
	fields := F{}
	var chain []*fieldError
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if fe, ok := e.(*fieldError); ok {
			chain = append(chain, fe)
		}
	}

	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].fields {
			fields[k] = v
		}
	}

	return fields
}

func Log(err error) {
	if err == nil {
		return
	}

	log.WithFields(CollectFields(err)).
		WithError(err).
		Error("Error occurred")
}
