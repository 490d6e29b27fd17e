//go:build cepton_exceptions

package sdk

const terminateOnDefect = true
