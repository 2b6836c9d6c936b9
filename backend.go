package seccs

import "github.com/i5heu/sec-cs/pkg/nodestore"

// Backend is the untrusted key-value store sec-cs is layered over. It is
// a type alias for nodestore.Backend, which is where the interface is
// actually defined (next to its only consumer), re-exported here so
// callers constructing a Store never need to import pkg/nodestore
// themselves.
type Backend = nodestore.Backend
