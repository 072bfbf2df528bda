// Package git keeps a local working copy synchronized with a shared remote
// repository using go-git.
//
// Pull fast-forwards when possible and otherwise rebases local commits onto
// the remote branch, refusing when both sides changed the same file. Push
// retries exactly once after a rejection, pulling in between. All mutating
// work on a working copy is serialized through Lock, which guards both
// goroutines and other processes sharing the directory.
package git
