package trellobackup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backuptools/trello-backup/pkg/archiver"
	"github.com/backuptools/trello-backup/pkg/trello"
)

// DefaultAttachmentSize is the download ceiling applied when no explicit
// limit is configured: attachments of 100 MB or more are skipped.
const DefaultAttachmentSize = 100000000

// Options configures a backup run.
type Options struct {
	APIKey   string
	APIToken string

	Dest           string // destination directory; empty = timestamped default
	Incremental    bool   // reuse an existing destination, skip present attachments
	Tokenize       bool   // name directories and files by stable ID
	Symlinks       bool   // create human-readable symlink aliases (implies Tokenize)
	ClosedBoards   bool   // include closed boards
	ArchivedLists  bool   // include archived lists
	ArchivedCards  bool   // include archived cards
	MyBoards       bool   // back up personal boards
	Organizations  bool   // back up organization boards
	AttachmentSize int64  // ceiling in bytes; 0 = default, -1 = unlimited

	Client *trello.Client // nil = build one from APIKey/APIToken
	Logger Logger         // nil = no logging
}

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logError(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Errorf(f, a...)
	}
}

// Result summarizes a completed run.
type Result struct {
	Dest   string
	Boards int // boards attempted
	Failed int // boards that ended with an error
}

// BoardFailure pairs a board with the error that stopped it.
type BoardFailure struct {
	Board trello.Board
	Err   error
}

// RunError aggregates the failures of two or more boards. A run with
// exactly one failed board returns that board's error unwrapped instead.
type RunError struct {
	Failures []BoardFailure
}

func (e *RunError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("board %s (%s): %v", f.Board.ID, f.Board.Name, f.Err)
	}
	return fmt.Sprintf("%d boards failed:\n%s", len(e.Failures), strings.Join(msgs, "\n"))
}

// Unwrap exposes the underlying board errors to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// scope is one top-level backup target: the personal account ("me") or one
// organization, with its filtered board listing.
type scope struct {
	name   string
	boards []trello.Board
}

// Run executes a full backup. The destination tree is created (or, in
// incremental mode, reused), every selected board is attempted, and
// per-board failures are collected without stopping the remaining boards.
// The returned Result is non-nil whenever the run got as far as walking
// boards, even if an error is returned alongside it.
func Run(opts Options) (*Result, error) {
	// Apply defaults.
	if opts.AttachmentSize == 0 {
		opts.AttachmentSize = DefaultAttachmentSize
	}
	if opts.Symlinks {
		// Aliases point at canonical names, so those must be stable IDs.
		opts.Tokenize = true
	}
	if opts.Dest == "" {
		opts.Dest = time.Now().Format("2006-01-02_15-04-05") + "_backup"
	}
	if !opts.MyBoards && !opts.Organizations {
		opts.MyBoards = true
		opts.logInfo("No backup scope specified. Backing up personal boards.")
	}

	// A pre-existing destination is fatal unless the caller asked for an
	// incremental run. Checked before any network traffic.
	if _, err := os.Stat(opts.Dest); err == nil && !opts.Incremental {
		return nil, fmt.Errorf("destination folder %q already exists", opts.Dest)
	}
	if err := os.MkdirAll(opts.Dest, 0755); err != nil {
		return nil, fmt.Errorf("create destination %q: %w", opts.Dest, err)
	}
	if opts.Symlinks {
		if err := archiver.PurgeSymlinks(opts.Dest); err != nil {
			return nil, err
		}
	}

	opts.logInfo("==== Backup initiated")
	opts.logInfo("Backing up to: %s", opts.Dest)
	opts.logInfo("Incremental: %t", opts.Incremental)
	opts.logInfo("Tokenize: %t", opts.Tokenize)
	opts.logInfo("Backup personal boards: %t", opts.MyBoards)
	opts.logInfo("Backup organization boards: %t", opts.Organizations)
	opts.logInfo("Backup closed boards: %t", opts.ClosedBoards)
	opts.logInfo("Backup archived lists: %t", opts.ArchivedLists)
	opts.logInfo("Backup archived cards: %t", opts.ArchivedCards)
	opts.logInfo("Attachment size limit (bytes): %d", opts.AttachmentSize)
	opts.logInfo("====")

	client := opts.Client
	if client == nil {
		client = trello.NewClient(opts.APIKey, opts.APIToken)
	}

	scopes, err := resolveScopes(client, opts)
	if err != nil {
		return nil, err
	}

	arch := archiver.New(client, archiver.Config{
		Tokenize:       opts.Tokenize,
		Symlinks:       opts.Symlinks,
		ArchivedLists:  opts.ArchivedLists,
		ArchivedCards:  opts.ArchivedCards,
		AttachmentSize: opts.AttachmentSize,
	}, opts.Logger)

	result := &Result{Dest: opts.Dest}
	var failures []BoardFailure
	for _, sc := range scopes {
		scopeDir := filepath.Join(opts.Dest, sc.name)
		if err := os.MkdirAll(scopeDir, 0755); err != nil {
			return result, fmt.Errorf("create scope directory %q: %w", scopeDir, err)
		}
		if opts.Symlinks {
			if err := archiver.PurgeSymlinks(scopeDir); err != nil {
				return result, err
			}
		}

		for _, board := range sc.boards {
			result.Boards++
			if err := arch.Board(scopeDir, board); err != nil {
				opts.logError("Failed to backup board %s (%s): %v", board.ID, board.Name, err)
				failures = append(failures, BoardFailure{Board: board, Err: err})
			}
		}
	}

	result.Failed = len(failures)
	switch len(failures) {
	case 0:
		return result, nil
	case 1:
		return result, failures[0].Err
	default:
		return result, &RunError{Failures: failures}
	}
}

// resolveScopes fetches the board listings for the requested top-level
// scopes. The personal scope is stored under the literal name "me";
// organizations under their short name. A listing failure here is fatal
// for the whole run.
func resolveScopes(client *trello.Client, opts Options) ([]scope, error) {
	var scopes []scope

	if opts.MyBoards {
		boards, err := client.MyBoards()
		if err != nil {
			return nil, fmt.Errorf("list personal boards: %w", err)
		}
		scopes = append(scopes, scope{name: "me", boards: filterBoards(boards, opts.ClosedBoards)})
	}

	if opts.Organizations {
		orgs, err := client.Organizations()
		if err != nil {
			return nil, fmt.Errorf("list organizations: %w", err)
		}
		for _, org := range orgs {
			boards, err := client.OrganizationBoards(org.ID)
			if err != nil {
				return nil, fmt.Errorf("list boards of organization %s: %w", org.Name, err)
			}
			scopes = append(scopes, scope{name: org.Name, boards: filterBoards(boards, opts.ClosedBoards)})
		}
	}

	return scopes, nil
}

// filterBoards drops closed boards unless their inclusion was requested.
func filterBoards(boards []trello.Board, includeClosed bool) []trello.Board {
	if includeClosed {
		return boards
	}
	open := make([]trello.Board, 0, len(boards))
	for _, b := range boards {
		if !b.Closed {
			open = append(open, b)
		}
	}
	return open
}
