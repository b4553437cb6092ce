// Package storage validates fetched media and writes it to the download
// directory.
//
// Payloads smaller than the floor for their kind are rejected before anything
// touches the disk. Accepted payloads are written as {account}_{epoch}.{ext}
// through a temporary file. A file already present under the target name is
// never replaced; a story saved within the same second gets a numeric suffix.
//
// Usage:
//
//	mgr, err := storage.NewManager("./downloads", storage.DefaultLimits())
//	if err != nil {
//	    return err
//	}
//	art, err := mgr.Save("alice", url, "jpg", data)
package storage
