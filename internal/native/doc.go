// Package native is the untyped handle-based engine underneath the forge
// object model. A Context owns arenas of type, value, block and module
// nodes addressed by uint32 handles; everything created in a Context dies
// with it. Handles are plain indices with liveness checks on every
// dereference: touching a node whose owning module or context has been
// disposed panics instead of reading freed state.
//
// The package deliberately mirrors a C-style API surface (flat functions
// over opaque handles, no methods on handles themselves beyond identity)
// so that the safety layer in the root package owns all typing decisions.
package native
