// Package remote moves snapshot documents between this device and a shared
// remote copy.
//
// Two backends implement Adapter: Gist keeps the document as a file in a
// GitHub gist and detects changes by polling, Redis keeps it under a key and
// announces every push on a pub/sub channel. Both replace the remote
// document wholesale on push; merging inbound documents into the local store
// is the caller's job (see snapshot.ApplyInbound).
//
// Every remote call runs under a timeout inside an OpenTelemetry span, and
// every failure surfaces as a model.ErrCodeSync error.
package remote
