// Package checkpoint saves and resumes progress over a list of accounts.
//
// A run is identified by its target list, so invoking the tool again with
// the same accounts and --resume skips the accounts that already finished.
// Each record keeps:
//   - the batch outcome of the account
//   - how many frames were visited and saved
//   - when it finished
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: ~/.local/share/igstories/checkpoints/
//   - macOS: ~/Library/Application Support/igstories/checkpoints/
//   - Windows: %APPDATA%/igstories/checkpoints/
//
// The checkpoint files are saved atomically to prevent corruption and carry
// a version number that Load checks.
package checkpoint
