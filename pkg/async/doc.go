// Package async provides panic-safe goroutine helpers. The creation queue
// drain and startup cache warmup run through SafeGo so a panicking task is
// logged instead of crashing the process.
package async
