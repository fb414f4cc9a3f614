// Package archiver walks one board's object graph and mirrors it onto the
// local filesystem: board snapshot, per-list directories, per-card
// metadata, comments, checklists, and attachments. Failures below the
// attachment level are collected, not raised; a board surfaces at most one
// aggregate error after the whole board has been attempted.
package archiver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backuptools/trello-backup/pkg/naming"
	"github.com/backuptools/trello-backup/pkg/trello"
)

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Config holds the per-run settings the traversal consults.
type Config struct {
	Tokenize       bool  // name directories and files by stable ID
	Symlinks       bool  // maintain human-readable symlink aliases
	ArchivedLists  bool  // ask the API to include archived lists
	ArchivedCards  bool  // ask the API to include archived cards
	AttachmentSize int64 // download ceiling in bytes, -1 = unlimited
}

// DownloadFailure records one attachment that could not be downloaded. Path
// is relative to the board directory once the board materializer has
// finished relabeling.
type DownloadFailure struct {
	Path string
	Err  error
}

// BoardError aggregates every attachment failure under one board. It is
// the only error a fully-traversed board produces; anything more severe
// (API failure, filesystem failure) aborts the board early instead.
type BoardError struct {
	BoardID   string
	BoardName string
	Failures  []DownloadFailure
}

func (e *BoardError) Error() string {
	paths := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		paths[i] = f.Path
	}
	return fmt.Sprintf("board %s (%s): %d failed attachment downloads:\n%s",
		e.BoardName, e.BoardID, len(e.Failures), strings.Join(paths, "\n"))
}

// Archiver materializes boards beneath a destination tree.
type Archiver struct {
	client *trello.Client
	cfg    Config
	log    Logger
}

// New creates an Archiver. logger may be nil.
func New(client *trello.Client, cfg Config, logger Logger) *Archiver {
	return &Archiver{client: client, cfg: cfg, log: logger}
}

func (a *Archiver) infof(f string, args ...any) {
	if a.log != nil {
		a.log.Infof(f, args...)
	}
}

func (a *Archiver) warnf(f string, args ...any) {
	if a.log != nil {
		a.log.Warnf(f, args...)
	}
}

// Board fetches one board's full payload and materializes it under
// baseDir. The returned error is a *BoardError when the only problems were
// attachment downloads, or the underlying error when the traversal itself
// failed.
func (a *Archiver) Board(baseDir string, board trello.Board) error {
	raw, detail, err := a.client.BoardDetail(board.ID, trello.BoardQuery{
		ArchivedLists: a.cfg.ArchivedLists,
		ArchivedCards: a.cfg.ArchivedCards,
	})
	if err != nil {
		return err
	}

	boardName := naming.Resolve(detail.Name, detail.ID, -1, a.cfg.Tokenize)
	boardDir := filepath.Join(baseDir, boardName)
	if err := mkdir(boardDir); err != nil {
		return err
	}
	if a.cfg.Symlinks {
		if err := refreshAlias(baseDir, naming.Alias(detail.Name, -1), boardName); err != nil {
			return err
		}
		if err := PurgeSymlinks(boardDir); err != nil {
			return err
		}
	}

	snapshot := boardName + "_full.json"
	a.infof("Saving full json for board %s with id %s to %s", detail.Name, detail.ID, snapshot)
	if err := writeJSON(filepath.Join(boardDir, snapshot), raw); err != nil {
		return err
	}

	// Cards arrive board-wide; group them under their owning list and
	// order each group by pos so sequence indices are deterministic.
	cardsByList := make(map[string][]trello.Card)
	for _, c := range detail.Cards {
		cardsByList[c.ListID] = append(cardsByList[c.ListID], c)
	}
	for id := range cardsByList {
		cards := cardsByList[id]
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].Pos < cards[j].Pos })
	}

	var failures []DownloadFailure
	for seq, list := range detail.Lists {
		listName := naming.Resolve(list.Name, list.ID, seq, a.cfg.Tokenize)
		listDir := filepath.Join(boardDir, listName)
		if err := mkdir(listDir); err != nil {
			return err
		}
		if a.cfg.Symlinks {
			if err := refreshAlias(boardDir, naming.Alias(list.Name, seq), listName); err != nil {
				return err
			}
			if err := PurgeSymlinks(listDir); err != nil {
				return err
			}
		}

		for cardSeq, card := range cardsByList[list.ID] {
			cardFailures, err := a.card(listDir, cardSeq, card)
			if err != nil {
				return err
			}
			for _, f := range cardFailures {
				failures = append(failures, DownloadFailure{
					Path: filepath.Join(listName, f.Path),
					Err:  f.Err,
				})
			}
		}
	}

	if len(failures) > 0 {
		return &BoardError{BoardID: detail.ID, BoardName: detail.Name, Failures: failures}
	}
	return nil
}

// card materializes one card beneath listDir. Attachment failures come
// back with paths relative to listDir; any other problem aborts the card
// and, with it, the board.
func (a *Archiver) card(listDir string, seq int, c trello.Card) ([]DownloadFailure, error) {
	cardName := naming.Resolve(c.Name, c.ID, seq, a.cfg.Tokenize)

	rawActions, actions, err := a.client.CardActions(c.ID)
	if err != nil {
		return nil, err
	}

	cardDir := filepath.Join(listDir, cardName)
	if err := mkdir(cardDir); err != nil {
		return nil, err
	}
	if a.cfg.Symlinks {
		if err := refreshAlias(listDir, naming.Alias(c.Name, seq), cardName); err != nil {
			return nil, err
		}
		if err := PurgeSymlinks(cardDir); err != nil {
			return nil, err
		}
	}

	for _, checklistID := range c.ChecklistIDs {
		checklist, err := a.client.Checklist(checklistID)
		if err != nil {
			return nil, err
		}
		name := "checklist_" + checklistID + ".txt"
		if err := os.WriteFile(filepath.Join(cardDir, name), checklist, 0644); err != nil {
			return nil, err
		}
	}

	a.infof("Saving %s", cardName)
	a.infof("Saving card.json and description.md")
	if err := writeJSON(filepath.Join(cardDir, "card.json"), c.Raw); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(cardDir, "description.md"), []byte(c.Desc), 0644); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(cardDir, "actions.json"), rawActions); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(cardDir, "comments.md"), []byte(commentTranscript(actions)), 0644); err != nil {
		return nil, err
	}

	failures, err := a.downloadAttachments(cardDir, c)
	if err != nil {
		return nil, err
	}
	for i := range failures {
		failures[i].Path = filepath.Join(cardName, "attachments", failures[i].Path)
	}
	return failures, nil
}

// commentTranscript renders the comment-type actions as a plain-text
// transcript, one block per comment in the order the API returned them.
func commentTranscript(actions []trello.Action) string {
	var b strings.Builder
	for _, action := range actions {
		if !action.IsComment() {
			continue
		}
		fmt.Fprintf(&b, "date: %s\r\nusername: %s\r\ncomment: %s\r\n\r\n",
			action.Date, action.MemberCreator.Username, action.Data.Text)
	}
	return b.String()
}

// mkdir creates a directory if it does not exist already.
func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// writeJSON writes a raw JSON payload re-indented for human inspection.
func writeJSON(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		// Not valid JSON; keep the payload as received.
		return os.WriteFile(path, raw, 0644)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// refreshAlias points a human-readable symlink at a canonical sibling
// name. An alias that already exists is left alone; stale aliases are
// handled by the purge at directory entry.
func refreshAlias(dir, alias, target string) error {
	if alias == target {
		return nil
	}
	err := os.Symlink(target, filepath.Join(dir, alias))
	if err != nil && !os.IsExist(err) {
		return fmt.Errorf("create alias %q: %w", alias, err)
	}
	return nil
}

// PurgeSymlinks removes every symbolic link directly under dir, clearing
// stale aliases before a directory is re-processed.
func PurgeSymlinks(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("purge symlinks in %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("purge symlinks in %q: %w", dir, err)
		}
	}
	return nil
}
