package trello

import "encoding/json"

// Version is the current release of the trello-backup module.
const Version = "1.0.0"

// Organization is a Trello workspace owning zero or more boards.
type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Board is the summary form returned by the membership listings.
type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// List is a column on a board. Pos is the server-assigned ordering key.
type List struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Closed bool    `json:"closed"`
	Pos    float64 `json:"pos"`
}

// Attachment is a file attached to a card. Bytes is nil when the remote
// side does not know the size, e.g. for link attachments.
type Attachment struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Bytes *int64 `json:"bytes"`
}

// Card carries the fields the traversal reads plus the raw JSON object as
// the API returned it, so the persisted card.json loses nothing.
type Card struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Desc         string       `json:"desc"`
	ListID       string       `json:"idList"`
	Pos          float64      `json:"pos"`
	ChecklistIDs []string     `json:"idChecklists"`
	Attachments  []Attachment `json:"attachments"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the fields above and keeps a copy of the full
// payload in Raw.
func (c *Card) UnmarshalJSON(data []byte) error {
	type card Card
	var v card
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Card(v)
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// BoardDetail is the full board payload with embedded lists and cards.
type BoardDetail struct {
	Board
	Lists []List `json:"lists"`
	Cards []Card `json:"cards"`
}

// Action is one entry of a card's activity feed. Only comment actions are
// interpreted; everything else passes through in the raw feed.
type Action struct {
	Type string `json:"type"`
	Date string `json:"date"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
	MemberCreator struct {
		Username string `json:"username"`
	} `json:"memberCreator"`
}

// IsComment reports whether the action is a card comment.
func (a Action) IsComment() bool { return a.Type == "commentCard" }
