// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle (load a script, execute
// it, publish events and write the report), decoupled from any specific
// entrypoint like a CLI.
package app
