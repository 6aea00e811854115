// Package textutil provides filename sanitization and display helpers shared
// by the acquisition worker, side-car writer and CLI.
package textutil
