package repository

// InvalidDocumentFunc is told about every stored document that fails to
// decode or validate on read.
type InvalidDocumentFunc func(collection, id string, err error)

type options struct {
	onInvalid InvalidDocumentFunc
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithInvalidDocumentHook registers fn for documents skipped on read.
func WithInvalidDocumentHook(fn InvalidDocumentFunc) Option {
	return func(o *options) {
		o.onInvalid = fn
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.onInvalid == nil {
		o.onInvalid = func(string, string, error) {}
	}
	return o
}
