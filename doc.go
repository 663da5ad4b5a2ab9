// Package forge is an ownership-aware object model for constructing and
// inspecting IR programs. It wraps the untyped handle engine in
// internal/native with three disciplines:
//
//   - owned resources (Context, Module, Builder, MemoryBuffer) are
//     disposed exactly once; a second Dispose panics;
//   - borrowed references (Type, Value, Function, BasicBlock, ...) are
//     valid only while their owning Context or Module lives and are never
//     disposed on their own;
//   - narrowing from a general handle to a specific kind goes through
//     Cast, which inspects the discriminant and fails closed.
//
// Lookups that can legitimately miss return an ok bool instead of an
// error; malformed IR is reported by Verify as a diagnostic; misuse of
// the API itself (mismatched comparison operands, out-of-range argument
// indexes, MustCast on the wrong kind) panics.
//
// Nothing in this package is safe for concurrent use; callers drive one
// Context from one goroutine at a time.
package forge
