package ledger

import "sync"

// Decodable is implemented by every ledger type that can be produced from packed
// bytes, either strictly (verified against ProtocolParameters) or loosely
// (unverified, for bytes the node has already accepted).
type Decodable[T any] interface {
	DecodeVerified(bytes []byte, params *ProtocolParameters) (T, error)
	DecodeUnverified(bytes []byte) (T, error)
}

// Raw is a cheap-to-clone wrapper around a packed byte form that decodes on
// demand and caches the result. It serializes/deserializes as opaque bytes: the
// raw field is what gets persisted verbatim (spec.md §9 "Raw + decoded duality"),
// and decoding only happens on the read paths that actually need the typed form.
type Raw[T any] struct {
	data []byte

	mu      sync.Mutex
	decoded *T
	err     error
}

// NewRaw wraps bytes received from the node without decoding them. The slice is
// owned by the wrapper from this point on; callers must not mutate it after the
// call.
func NewRaw[T any](data []byte) Raw[T] {
	return Raw[T]{data: data}
}

// Bytes returns the packed byte form. It never decodes.
func (r *Raw[T]) Bytes() []byte {
	return r.data
}

// Len reports the number of raw bytes, used for rent/size accounting without a
// decode.
func (r *Raw[T]) Len() int {
	return len(r.data)
}

// DecodeUnverified decodes without re-checking structural rules, for bytes
// received from the trusted node (spec.md §4.1). The result is cached.
func (r *Raw[T]) DecodeUnverified(codec Decodable[T]) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decoded != nil || r.err != nil {
		return derefOrZero(r.decoded), r.err
	}
	v, err := codec.DecodeUnverified(r.data)
	if err != nil {
		r.err = err
		var zero T
		return zero, err
	}
	r.decoded = &v
	return v, nil
}

// DecodeVerified decodes against a ProtocolParameters visitor, returning the
// codec's own error unchanged if bytes violate structural rules. It shares the
// cache with DecodeUnverified: once any decode has succeeded or failed, later
// calls return that cached result without decoding or verifying again. Used on
// query paths that must not trust node-origin bytes blindly (e.g. replay from an
// untrusted historical dump).
func (r *Raw[T]) DecodeVerified(codec Decodable[T], params *ProtocolParameters) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decoded != nil || r.err != nil {
		return derefOrZero(r.decoded), r.err
	}
	v, err := codec.DecodeVerified(r.data, params)
	if err != nil {
		r.err = err
		var zero T
		return zero, err
	}
	r.decoded = &v
	return v, nil
}

func derefOrZero[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
