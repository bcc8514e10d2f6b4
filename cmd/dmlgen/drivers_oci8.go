//go:build oci8

package main

// go-oci8 needs cgo and an Oracle Instant Client; build with -tags oci8.
import (
	_ "github.com/mattn/go-oci8"
)
