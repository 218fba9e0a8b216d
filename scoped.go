package tdms

import "errors"

// WithWriter creates a [Writer] at filename, passes it to fn, and guarantees
// Close is called on the way out, even if fn panics. The error returned by
// Close is folded into the returned error (joined if fn also failed).
func WithWriter(filename string, fn func(*Writer) error) (err error) {
	w, err := NewWriter(filename)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, w.Close())
	}()

	return fn(w)
}

// WithRotatingWriter is like [WithWriter] but for a [RotatingWriter].
func WithRotatingWriter(filename string, maxBytes int64, fn func(*RotatingWriter) error) (err error) {
	w, err := NewRotatingWriter(filename, maxBytes)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, w.Close())
	}()

	return fn(w)
}
