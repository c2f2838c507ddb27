package badger

import (
	"fmt"

	"github.com/harborline/docflow/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
)

// makeRecordKey generates a key for a document record by object identity.
func makeRecordKey(identity core.ObjectIdentity) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentRecordPrefix, identity.String()))
}

// recordScanPrefix is the iteration prefix covering all document records.
func recordScanPrefix() []byte {
	return []byte(documentRecordPrefix + ":")
}
