package archiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/backuptools/trello-backup/pkg/naming"
	"github.com/backuptools/trello-backup/pkg/trello"
)

// downloadAttachments fetches every eligible attachment of a card into an
// attachments/ subdirectory of cardDir. Per-attachment download failures
// are collected (paths relative to cardDir's attachments directory) and
// never abort the card; filesystem or alias errors do.
func (a *Archiver) downloadAttachments(cardDir string, c trello.Card) ([]DownloadFailure, error) {
	eligible := make([]trello.Attachment, 0, len(c.Attachments))
	for _, att := range c.Attachments {
		if att.Bytes == nil {
			// Unknown size, e.g. a link attachment. Not a failure.
			continue
		}
		if a.cfg.AttachmentSize != -1 && *att.Bytes >= a.cfg.AttachmentSize {
			continue
		}
		eligible = append(eligible, att)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	dir := filepath.Join(cardDir, "attachments")
	if err := mkdir(dir); err != nil {
		return nil, err
	}
	if a.cfg.Symlinks {
		if err := PurgeSymlinks(dir); err != nil {
			return nil, err
		}
	}

	var failures []DownloadFailure
	for seq, att := range eligible {
		// The canonical name embeds the byte size so a re-uploaded or
		// truncated file is visible to a human inspecting the backup.
		backupName := fmt.Sprintf("%s_%d%s", att.ID, *att.Bytes, naming.Ext(att.Name))
		name := naming.Resolve(att.Name, backupName, seq, a.cfg.Tokenize)
		path := filepath.Join(dir, name)

		// Presence of the canonical name is the whole incremental check;
		// content is not verified.
		if _, err := os.Stat(path); err == nil {
			a.infof("Attachment %s exists already.", name)
		} else {
			a.infof("Saving attachment %s", name)
			if err := a.fetchAttachment(att.URL, path); err != nil {
				a.warnf("Failed download: %s - %v", name, err)
				failures = append(failures, DownloadFailure{Path: name, Err: err})
				continue
			}
		}

		if a.cfg.Symlinks {
			if err := refreshAlias(dir, naming.Alias(att.Name, seq), name); err != nil {
				return failures, err
			}
		}
	}
	return failures, nil
}

// fetchAttachment streams one attachment to path. The local file is only
// created once the request has succeeded, so a failed request leaves no
// trace for the skip-if-exists check to misread; a mid-stream failure may
// leave a partial file behind.
func (a *Archiver) fetchAttachment(url, path string) error {
	body, err := a.client.Download(url)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return err
	}
	return nil
}
