// Package source retrieves raw messages for a project identity.
//
// MessageSource is the seam between the scheduler and the relay network. The
// production implementation, Helper, shells out to the sphere helper binary,
// which owns relay connections and decryption; the daemon only needs its JSON
// output. Tests substitute Func.
package source
