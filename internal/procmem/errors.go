package procmem

import "errors"

// ErrPermission indicates open(2) on /proc/<pid>/mem failed with EACCES.
// This is always a fatal, user-visible attach failure (see design notes
// on ptrace_scope).
var ErrPermission = errors.New("procmem: permission denied")

// ErrRead indicates a seek/read (or pread) failed against an already-open
// memory file, most often because the inferior has exited or the address
// is unmapped. Sample-time occurrences of this are treated as fatal by
// callers: a process that stops responding to reads has very likely
// exited.
var ErrRead = errors.New("procmem: read failed")
