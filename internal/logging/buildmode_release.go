//go:build release

package logging

const releaseBuild = true
