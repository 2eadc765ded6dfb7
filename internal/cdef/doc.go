// Package cdef renders numeric sequences as C constant array declarations.
//
// The package is pure: Format returns the declaration text and FormatTo writes
// it to a caller supplied io.Writer. Nothing is printed and no state is shared
// between calls, so the functions are safe for concurrent use.
//
// Output shape (length not exported):
//
//	const float taps[3] = {
//	    1.0f, 0.5f, 0.25f
//	};
//
// With ExportLength the element count is emitted as a separate constant and
// used as the array size.
package cdef
