//go:build !(amd64 || arm64 || 386 || arm || riscv64 || loong64 || mipsle || mips64le || ppc64le || wasm)

package main

// The oto output path hands the device a raw byte view of the float32
// render buffer, which assumes little-endian float layout on the wire.
var _ = "padtrack requires a little-endian architecture" + 1
