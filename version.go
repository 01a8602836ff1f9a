// Package quill generates text-resource providers for Go packages.
package quill

// Version is the current quill release.
const Version = "0.1.0"
