package upstream

import (
	"context"
	"time"
)

const (
	likeCollection   = "app.bsky.feed.like"
	repostCollection = "app.bsky.feed.repost"
	postCollection   = "app.bsky.feed.post"
	followCollection = "app.bsky.graph.follow"
)

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type createRecordInput struct {
	Repo       string      `json:"repo"`
	Collection string      `json:"collection"`
	Record     interface{} `json:"record"`
}

type createRecordOutput struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type deleteRecordInput struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
}

type subjectRecord struct {
	Type      string    `json:"$type"`
	Subject   strongRef `json:"subject"`
	CreatedAt string    `json:"createdAt"`
}

func (c *Client) createSubjectRecord(ctx context.Context, collection, uri, cid string) (string, error) {
	var out createRecordOutput
	err := c.post(ctx, "com.atproto.repo.createRecord", &createRecordInput{
		Repo:       c.tokens.DID(),
		Collection: collection,
		Record: &subjectRecord{
			Type:      collection,
			Subject:   strongRef{URI: uri, CID: cid},
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	return checkRef(out.URI)
}

func (c *Client) deleteRecordByURI(ctx context.Context, collection, recordURI string) error {
	rkey, err := rkeyFromURI(recordURI)
	if err != nil {
		return err
	}
	return c.post(ctx, "com.atproto.repo.deleteRecord", &deleteRecordInput{
		Repo:       c.tokens.DID(),
		Collection: collection,
		RKey:       rkey,
	}, nil)
}

// Like creates the viewer's like record for the post and returns its ref.
func (c *Client) Like(ctx context.Context, uri, cid string) (string, error) {
	return c.createSubjectRecord(ctx, likeCollection, uri, cid)
}

// Unlike deletes the viewer's like record.
func (c *Client) Unlike(ctx context.Context, likeRef string) error {
	return c.deleteRecordByURI(ctx, likeCollection, likeRef)
}

// Repost creates the viewer's repost record for the post and returns its ref.
func (c *Client) Repost(ctx context.Context, uri, cid string) (string, error) {
	return c.createSubjectRecord(ctx, repostCollection, uri, cid)
}

// Unrepost deletes the viewer's repost record.
func (c *Client) Unrepost(ctx context.Context, repostRef string) error {
	return c.deleteRecordByURI(ctx, repostCollection, repostRef)
}

// PostPayload is a post to be created, matching the shape persisted by
// drafts and the retry queue.
type PostPayload struct {
	Text     string `json:"text" bson:"text"`
	ReplyTo  string `json:"reply_to,omitempty" bson:"reply_to,omitempty"`
	QuoteURI string `json:"quote_uri,omitempty" bson:"quote_uri,omitempty"`
	QuoteCID string `json:"quote_cid,omitempty" bson:"quote_cid,omitempty"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type postRecord struct {
	Type      string      `json:"$type"`
	Text      string      `json:"text"`
	CreatedAt string      `json:"createdAt"`
	Reply     *replyRef   `json:"reply,omitempty"`
	Embed     interface{} `json:"embed,omitempty"`
}

type recordEmbed struct {
	Type   string    `json:"$type"`
	Record strongRef `json:"record"`
}

// CreatePost creates a feed post record. Replies resolve the parent's own
// reply ref so the thread root is carried through; a parent with no reply
// ref is itself the root.
func (c *Client) CreatePost(ctx context.Context, p PostPayload) (string, error) {
	record := &postRecord{
		Type:      postCollection,
		Text:      p.Text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if p.ReplyTo != "" {
		parent, err := c.getPost(ctx, p.ReplyTo)
		if err != nil {
			return "", err
		}
		root := strongRef{URI: parent.URI, CID: parent.CID}
		if parent.Record.Reply != nil {
			root = parent.Record.Reply.Root
		}
		record.Reply = &replyRef{
			Root:   root,
			Parent: strongRef{URI: parent.URI, CID: parent.CID},
		}
	}

	if p.QuoteURI != "" && p.QuoteCID != "" {
		record.Embed = &recordEmbed{
			Type:   "app.bsky.embed.record",
			Record: strongRef{URI: p.QuoteURI, CID: p.QuoteCID},
		}
	}

	var out createRecordOutput
	err := c.post(ctx, "com.atproto.repo.createRecord", &createRecordInput{
		Repo:       c.tokens.DID(),
		Collection: postCollection,
		Record:     record,
	}, &out)
	if err != nil {
		return "", err
	}
	return checkRef(out.URI)
}

type followRecord struct {
	Type      string `json:"$type"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"createdAt"`
}

// Follow creates a follow record for the actor and returns its ref.
func (c *Client) Follow(ctx context.Context, did string) (string, error) {
	var out createRecordOutput
	err := c.post(ctx, "com.atproto.repo.createRecord", &createRecordInput{
		Repo:       c.tokens.DID(),
		Collection: followCollection,
		Record: &followRecord{
			Type:      followCollection,
			Subject:   did,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	return checkRef(out.URI)
}

// Unfollow deletes the viewer's follow record.
func (c *Client) Unfollow(ctx context.Context, followRef string) error {
	return c.deleteRecordByURI(ctx, followCollection, followRef)
}

type muteActorInput struct {
	Actor string `json:"actor"`
}

func (c *Client) Mute(ctx context.Context, actor string) error {
	return c.post(ctx, "app.bsky.graph.muteActor", &muteActorInput{Actor: actor}, nil)
}

func (c *Client) Unmute(ctx context.Context, actor string) error {
	return c.post(ctx, "app.bsky.graph.unmuteActor", &muteActorInput{Actor: actor}, nil)
}
