// Package util holds small parsing and display helpers shared by the
// server and bootstrap packages.
package util
