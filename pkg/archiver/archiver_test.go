package archiver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backuptools/trello-backup/pkg/trello"
)

// boardFixture builds a fake Trello API around one board payload, serving
// empty action feeds and a stub checklist for any card or checklist id.
func boardFixture(t *testing.T, board map[string]any) (*trello.Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/boards/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(board)
	})
	mux.HandleFunc("/cards/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"type":"commentCard","date":"2024-03-01T10:00:00Z",
			 "data":{"text":"first comment"},"memberCreator":{"username":"ana"}},
			{"type":"updateCard","date":"2024-03-02T10:00:00Z","data":{}}
		]`)
	})
	mux.HandleFunc("/checklists/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ch1","name":"Steps","checkItems":[{"name":"step one","state":"complete"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := trello.NewClient("k", "tok")
	client.SetBaseURL(srv.URL)
	return client, srv
}

func cardJSON(id, name, listID string, pos float64, extra map[string]any) map[string]any {
	c := map[string]any{
		"id": id, "name": name, "desc": "desc of " + name,
		"idList": listID, "pos": pos, "idChecklists": []string{},
	}
	for k, v := range extra {
		c[k] = v
	}
	return c
}

func TestBoardMaterializesCardsInPositionOrder(t *testing.T) {
	// Cards arrive out of pos order; the tree must come out sorted, with
	// sequence indices matching the sorted order.
	board := map[string]any{
		"id": "b1", "name": "Roadmap", "closed": false,
		"lists": []map[string]any{{"id": "l1", "name": "Tasks", "pos": 1}},
		"cards": []map[string]any{
			cardJSON("c2", "Second", "l1", 2, nil),
			cardJSON("c1", "First", "l1", 1, nil),
		},
	}
	client, _ := boardFixture(t, board)
	a := New(client, Config{AttachmentSize: -1}, nil)
	base := t.TempDir()

	require.NoError(t, a.Board(base, trello.Board{ID: "b1", Name: "Roadmap"}))

	boardDir := filepath.Join(base, "Roadmap")
	listDir := filepath.Join(boardDir, "0_Tasks")
	assert.DirExists(t, filepath.Join(listDir, "0_First"))
	assert.DirExists(t, filepath.Join(listDir, "1_Second"))
}

func TestBoardWritesFullTree(t *testing.T) {
	board := map[string]any{
		"id": "b1", "name": "Roadmap", "closed": false,
		"lists": []map[string]any{{"id": "l1", "name": "Tasks", "pos": 1}},
		"cards": []map[string]any{
			cardJSON("c1", "First", "l1", 1, map[string]any{"idChecklists": []string{"ch1"}}),
		},
	}
	client, _ := boardFixture(t, board)
	a := New(client, Config{AttachmentSize: -1}, nil)
	base := t.TempDir()

	require.NoError(t, a.Board(base, trello.Board{ID: "b1", Name: "Roadmap"}))

	cardDir := filepath.Join(base, "Roadmap", "0_Tasks", "0_First")
	assert.FileExists(t, filepath.Join(base, "Roadmap", "Roadmap_full.json"))
	assert.FileExists(t, filepath.Join(cardDir, "card.json"))
	assert.FileExists(t, filepath.Join(cardDir, "actions.json"))
	assert.FileExists(t, filepath.Join(cardDir, "checklist_ch1.txt"))

	desc, err := os.ReadFile(filepath.Join(cardDir, "description.md"))
	require.NoError(t, err)
	assert.Equal(t, "desc of First", string(desc))

	comments, err := os.ReadFile(filepath.Join(cardDir, "comments.md"))
	require.NoError(t, err)
	assert.Equal(t,
		"date: 2024-03-01T10:00:00Z\r\nusername: ana\r\ncomment: first comment\r\n\r\n",
		string(comments), "only comment actions belong in the transcript")

	// card.json keeps the raw object, so fields the walker never reads
	// must still round-trip.
	raw, err := os.ReadFile(filepath.Join(cardDir, "card.json"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "c1", decoded["id"])
}

func TestBoardTokenizedNaming(t *testing.T) {
	board := map[string]any{
		"id": "b1", "name": "Roadmap", "closed": false,
		"lists": []map[string]any{{"id": "l1", "name": "Tasks", "pos": 1}},
		"cards": []map[string]any{cardJSON("c1", "First", "l1", 1, nil)},
	}
	client, _ := boardFixture(t, board)
	a := New(client, Config{Tokenize: true, AttachmentSize: -1}, nil)
	base := t.TempDir()

	require.NoError(t, a.Board(base, trello.Board{ID: "b1", Name: "Roadmap"}))
	assert.DirExists(t, filepath.Join(base, "b1", "l1", "c1"))
	assert.FileExists(t, filepath.Join(base, "b1", "b1_full.json"))
}

func TestBoardAliasSymlinks(t *testing.T) {
	board := map[string]any{
		"id": "b1", "name": "Café Plans", "closed": false,
		"lists": []map[string]any{{"id": "l1", "name": "Tasks", "pos": 1}},
		"cards": []map[string]any{},
	}
	client, _ := boardFixture(t, board)
	a := New(client, Config{Tokenize: true, Symlinks: true, AttachmentSize: -1}, nil)
	base := t.TempDir()

	require.NoError(t, a.Board(base, trello.Board{ID: "b1", Name: "Café Plans"}))

	target, err := os.Readlink(filepath.Join(base, "Cafe Plans"))
	require.NoError(t, err, "board alias must exist")
	assert.Equal(t, "b1", target)

	target, err = os.Readlink(filepath.Join(base, "b1", "0_Tasks"))
	require.NoError(t, err, "list alias must exist")
	assert.Equal(t, "l1", target)

	// A second run against the same tree purges and recreates aliases
	// instead of failing on the collision.
	require.NoError(t, a.Board(base, trello.Board{ID: "b1", Name: "Café Plans"}))
}

func TestBoardAggregatesAttachmentFailures(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusBadGateway)
	}))
	defer files.Close()

	board := map[string]any{
		"id": "b1", "name": "Roadmap", "closed": false,
		"lists": []map[string]any{{"id": "l1", "name": "Tasks", "pos": 1}},
		"cards": []map[string]any{
			cardJSON("c1", "First", "l1", 1, map[string]any{
				"attachments": []map[string]any{
					{"id": "a1", "name": "big.bin", "url": files.URL + "/big.bin", "bytes": 9},
					{"id": "a2", "name": "other.bin", "url": files.URL + "/other.bin", "bytes": 9},
				},
			}),
		},
	}
	client, _ := boardFixture(t, board)
	a := New(client, Config{AttachmentSize: -1}, nil)
	base := t.TempDir()

	err := a.Board(base, trello.Board{ID: "b1", Name: "Roadmap"})
	require.Error(t, err)

	var boardErr *BoardError
	require.ErrorAs(t, err, &boardErr)
	assert.Equal(t, "b1", boardErr.BoardID)
	require.Len(t, boardErr.Failures, 2, "every failing attachment is reported")
	assert.Equal(t, filepath.Join("0_Tasks", "0_First", "attachments", "0_big.bin"),
		boardErr.Failures[0].Path, "failure paths are relative to the board directory")

	// The rest of the card was still materialized.
	assert.FileExists(t, filepath.Join(base, "Roadmap", "0_Tasks", "0_First", "card.json"))
}

func TestBoardFetchFailureIsNotABoardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := trello.NewClient("k", "tok")
	client.SetBaseURL(srv.URL)
	a := New(client, Config{AttachmentSize: -1}, nil)

	err := a.Board(t.TempDir(), trello.Board{ID: "b1", Name: "Roadmap"})
	require.Error(t, err)

	var boardErr *BoardError
	assert.False(t, errors.As(err, &boardErr), "an API failure surfaces as-is, not as an aggregate")
}

func TestCommentTranscriptEmptyWithoutComments(t *testing.T) {
	actions := []trello.Action{{Type: "updateCard"}, {Type: "createCard"}}
	assert.Empty(t, commentTranscript(actions))
}
