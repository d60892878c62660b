// Package parser defines the contract shared by the raw-file parsers.
package parser

import (
	"io"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Parser turns one raw file into records. The int result counts rows that
// were read but could not be mapped.
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}
