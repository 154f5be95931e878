// Package uniuri generates random strings from crypto/rand, used for generated
// initial passwords.
package uniuri
