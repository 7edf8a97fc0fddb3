package decode

import "errors"

var (
	ErrBadSignature      = errors.New("decode: bad file signature")
	ErrInvariant         = errors.New("decode: structural invariant violated")
	ErrUnsupportedFormat = errors.New("decode: unsupported format")
)
