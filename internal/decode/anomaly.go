package decode

import "fmt"

// Kind classifies a recoverable problem found while scanning.
type Kind string

const (
	KindResync            Kind = "resync"
	KindTruncated         Kind = "truncated"
	KindOverrun           Kind = "overrun"
	KindUnknownTag        Kind = "unknown-tag"
	KindMissingTerminator Kind = "missing-terminator"
	KindUnexpectedByte    Kind = "unexpected-byte"
	KindMalformed         Kind = "malformed"
)

// Anomaly is a recoverable problem. The scan carries on past it.
type Anomaly struct {
	Kind     Kind   `json:"kind"`
	Offset   int    `json:"offset"`
	Record   string `json:"record,omitempty"`
	Declared int    `json:"declared,omitempty"`
	Consumed int    `json:"consumed,omitempty"`
	Detail   string `json:"detail"`
}

func (a Anomaly) String() string {
	if a.Record == "" {
		return fmt.Sprintf("%s@%d: %s", a.Kind, a.Offset, a.Detail)
	}
	return fmt.Sprintf("%s@%d (%s): %s", a.Kind, a.Offset, a.Record, a.Detail)
}
