// Package log provides the leveled, printf-style logging used across Autonix.
//
// Components accept a Logger through their options and fall back to the
// package default. GologLogger implements Logger on github.com/kataras/golog.
//
// # Process setup
//
// Setup builds an isolated sink: an application logger at INFO and a named
// "http" logger for network clients at WARN. Nothing global is touched:
//
//	h := log.Setup(log.Options{Output: &buf})
//	h.Logger().Info("starting %s", name)
//	h.HTTP().Info("dropped, below WARN")
//
// Init is the variant for main. It runs Setup once and installs the result
// as the package default; later calls return the same handle.
//
//	h := log.Init(log.Options{Level: "debug"})
//	log.Info("uses the installed handle")
package log
