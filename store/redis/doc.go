// Package redis keeps chat thread checkpoints in Redis (go-redis v9).
//
// Keys are "<prefix>cp:{<thread>}:<id>" for checkpoints and
// "<prefix>thread:{<thread>}" for the sorted set of a thread's checkpoint ids.
// The braces are a cluster hash tag: every key of a thread maps to the same
// slot.
package redis
