// Package trellobackup mirrors a Trello account's boards onto a local
// directory tree for disaster-recovery archival: every board, list, and
// card becomes a directory holding the raw API payloads, a description and
// comment transcript, checklist dumps, and the card's attachments.
//
// The CLI lives in cmd/trello-backup; this root package exposes the same
// pipeline as a Go API so that callers can embed backups in their own
// tools without shelling out.
//
// # Import
//
// The module path contains a hyphen but Go package names cannot, so the
// package is named trellobackup:
//
//	import "github.com/backuptools/trello-backup" // package trellobackup
//
// # Quick start
//
//	result, err := trellobackup.Run(trellobackup.Options{
//	    APIKey:   os.Getenv("TRELLO_API_KEY"),
//	    APIToken: os.Getenv("TRELLO_TOKEN"),
//	    Dest:     "trello-backup",
//	    MyBoards: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Printf("backed up %d boards to %s", result.Boards, result.Dest)
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output.
//
// # Naming modes
//
// By default directories carry sanitized human-readable names, prefixed
// with a position index where siblings could collide. With
// [Options.Tokenize] every directory and attachment file is named by its
// stable Trello identifier instead; [Options.Symlinks] additionally
// maintains ASCII human-readable symlinks pointing at the canonical names
// (and forces tokenized naming, since aliases need stable targets).
//
// # Partial failure
//
// A failed attachment download never aborts its card; failures are
// collected and surface once per board. A failed board never stops the
// remaining boards; the run's terminal error is the single board error, or
// a [RunError] aggregating several. Re-running with [Options.Incremental]
// against the same destination skips every attachment already on disk.
package trellobackup
