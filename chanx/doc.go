// Package chanx holds the channel helpers logmap's dispatchers share:
// sends and receives that give up when a context is done, a receive
// wrapper bound to a context, and a drain used during shutdown.
package chanx
