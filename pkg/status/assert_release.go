//go:build !tblmgr_debug

package status

const debugAsserts = false
