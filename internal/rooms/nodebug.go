//go:build !smdebug

package rooms

const debugInvariants = false
