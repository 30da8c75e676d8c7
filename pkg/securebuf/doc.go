// Package securebuf holds in-flight credential material.
//
// A [Buffer] is allocated once with a fixed capacity inside a guarded, mlocked memguard
// allocation and reused for the lifetime of the process. Every byte past the current length is
// zero, and [Buffer.Reset] overwrites the whole capacity so no residue of a previous attempt
// survives.
package securebuf
