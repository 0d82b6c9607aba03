package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/views"
)

type actorView struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

type postView struct {
	URI    string    `json:"uri"`
	CID    string    `json:"cid"`
	Author actorView `json:"author"`
	Record struct {
		Text      string    `json:"text"`
		CreatedAt string    `json:"createdAt"`
		Reply     *replyRef `json:"reply"`
	} `json:"record"`
	ReplyCount  int64 `json:"replyCount"`
	RepostCount int64 `json:"repostCount"`
	LikeCount   int64 `json:"likeCount"`
	Viewer      struct {
		Like   string `json:"like"`
		Repost string `json:"repost"`
	} `json:"viewer"`
}

type feedViewPost struct {
	Post   postView `json:"post"`
	Reason *struct {
		Type string    `json:"$type"`
		By   actorView `json:"by"`
	} `json:"reason"`
}

func (v postView) toPost() posts.Post {
	return posts.Post{
		URI:               v.URI,
		CID:               v.CID,
		AuthorDID:         v.Author.DID,
		AuthorHandle:      v.Author.Handle,
		AuthorDisplayName: v.Author.DisplayName,
		AuthorAvatar:      v.Author.Avatar,
		Text:              v.Record.Text,
		CreatedAt:         v.Record.CreatedAt,
		ReplyCount:        v.ReplyCount,
		RepostCount:       v.RepostCount,
		LikeCount:         v.LikeCount,
		Liked:             v.Viewer.Like != "",
		Reposted:          v.Viewer.Repost != "",
		ViewerLike:        v.Viewer.Like,
		ViewerRepost:      v.Viewer.Repost,
	}
}

func (v feedViewPost) toPost() posts.Post {
	p := v.Post.toPost()
	if v.Reason != nil && v.Reason.Type == "app.bsky.feed.defs#reasonRepost" {
		p.IsRepost = true
		p.RepostedByHandle = v.Reason.By.Handle
		p.RepostedByDisplayName = v.Reason.By.DisplayName
	}
	return p
}

// FeedPage is one fetched page of any post feed.
type FeedPage struct {
	Posts  views.Flat[posts.Post]
	Cursor string
}

type feedOutput struct {
	Feed   []feedViewPost `json:"feed"`
	Cursor string         `json:"cursor"`
}

func (c *Client) fetchFeed(ctx context.Context, nsid string, params url.Values) (FeedPage, error) {
	var out feedOutput
	if err := c.get(ctx, nsid, params, &out); err != nil {
		return FeedPage{}, err
	}
	page := FeedPage{Cursor: out.Cursor}
	page.Posts = make(views.Flat[posts.Post], 0, len(out.Feed))
	for _, f := range out.Feed {
		page.Posts = append(page.Posts, f.toPost())
	}
	return page, nil
}

func feedParams(cursor string, limit int) url.Values {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}

// Timeline fetches one page of the viewer's home timeline.
func (c *Client) Timeline(ctx context.Context, cursor string, limit int) (FeedPage, error) {
	return c.fetchFeed(ctx, "app.bsky.feed.getTimeline", feedParams(cursor, limit))
}

// Feed fetches one page of a custom feed generator.
func (c *Client) Feed(ctx context.Context, feedURI, cursor string, limit int) (FeedPage, error) {
	params := feedParams(cursor, limit)
	params.Set("feed", feedURI)
	return c.fetchFeed(ctx, "app.bsky.feed.getFeed", params)
}

// AuthorFeed fetches one page of an actor's posts.
func (c *Client) AuthorFeed(ctx context.Context, actor, cursor string, limit int) (FeedPage, error) {
	params := feedParams(cursor, limit)
	params.Set("actor", actor)
	return c.fetchFeed(ctx, "app.bsky.feed.getAuthorFeed", params)
}

type threadViewPost struct {
	Post    postView         `json:"post"`
	Parent  *threadViewPost  `json:"parent"`
	Replies []threadViewPost `json:"replies"`
}

type threadOutput struct {
	Thread threadViewPost `json:"thread"`
}

func (v threadViewPost) toNode() *views.Node[posts.Post] {
	node := &views.Node[posts.Post]{Entity: v.Post.toPost()}
	for _, reply := range v.Replies {
		node.Children = append(node.Children, reply.toNode())
	}
	return node
}

// Thread fetches a post's reply thread rooted at the topmost ancestor: the
// upstream parent chain is folded back so the returned tree is rooted at
// the thread root, with the requested post somewhere along the spine.
func (c *Client) Thread(ctx context.Context, uri string, depth int) (*views.Node[posts.Post], error) {
	params := url.Values{}
	params.Set("uri", uri)
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}
	var out threadOutput
	if err := c.get(ctx, "app.bsky.feed.getPostThread", params, &out); err != nil {
		return nil, err
	}

	node := out.Thread.toNode()
	for parent := out.Thread.Parent; parent != nil; parent = parent.Parent {
		wrapped := &views.Node[posts.Post]{Entity: parent.Post.toPost()}
		wrapped.Children = append(wrapped.Children, node)
		for _, reply := range parent.Replies {
			if reply.Post.URI == node.Entity.URI {
				continue
			}
			wrapped.Children = append(wrapped.Children, reply.toNode())
		}
		node = wrapped
	}
	return node, nil
}

type postWithRecord struct {
	URI    string `json:"uri"`
	CID    string `json:"cid"`
	Record struct {
		Reply *replyRef `json:"reply"`
	} `json:"record"`
}

func (c *Client) getPost(ctx context.Context, uri string) (postWithRecord, error) {
	params := url.Values{}
	params.Add("uris", uri)
	var out struct {
		Posts []postWithRecord `json:"posts"`
	}
	if err := c.get(ctx, "app.bsky.feed.getPosts", params, &out); err != nil {
		return postWithRecord{}, err
	}
	if len(out.Posts) == 0 {
		return postWithRecord{}, ErrBadStatus
	}
	return out.Posts[0], nil
}

type profileView struct {
	actorView
	Description    string `json:"description"`
	Banner         string `json:"banner"`
	FollowersCount int64  `json:"followersCount"`
	FollowsCount   int64  `json:"followsCount"`
	PostsCount     int64  `json:"postsCount"`
	Viewer         struct {
		Following string `json:"following"`
		Muted     bool   `json:"muted"`
	} `json:"viewer"`
}

func (v profileView) toProfile() posts.Profile {
	return posts.Profile{
		DID:            v.DID,
		Handle:         v.Handle,
		DisplayName:    v.DisplayName,
		Description:    v.Description,
		Avatar:         v.Avatar,
		Banner:         v.Banner,
		FollowersCount: v.FollowersCount,
		FollowsCount:   v.FollowsCount,
		PostsCount:     v.PostsCount,
		ViewerFollow:   v.Viewer.Following,
		ViewerMuted:    v.Viewer.Muted,
	}
}

// Profile fetches an actor's profile.
func (c *Client) Profile(ctx context.Context, actor string) (posts.Profile, error) {
	params := url.Values{}
	params.Set("actor", actor)
	var out profileView
	if err := c.get(ctx, "app.bsky.actor.getProfile", params, &out); err != nil {
		return posts.Profile{}, err
	}
	return out.toProfile(), nil
}

// SearchPosts runs a full-text post search.
func (c *Client) SearchPosts(ctx context.Context, q, cursor string, limit int) (FeedPage, error) {
	params := feedParams(cursor, limit)
	params.Set("q", q)
	var out struct {
		Posts  []postView `json:"posts"`
		Cursor string     `json:"cursor"`
	}
	if err := c.get(ctx, "app.bsky.feed.searchPosts", params, &out); err != nil {
		return FeedPage{}, err
	}
	page := FeedPage{Cursor: out.Cursor}
	page.Posts = make(views.Flat[posts.Post], 0, len(out.Posts))
	for _, p := range out.Posts {
		page.Posts = append(page.Posts, p.toPost())
	}
	return page, nil
}

// SearchActors runs an actor search.
func (c *Client) SearchActors(ctx context.Context, q, cursor string, limit int) ([]posts.Profile, string, error) {
	params := feedParams(cursor, limit)
	params.Set("q", q)
	var out struct {
		Actors []profileView `json:"actors"`
		Cursor string        `json:"cursor"`
	}
	if err := c.get(ctx, "app.bsky.actor.searchActors", params, &out); err != nil {
		return nil, "", err
	}
	profiles := make([]posts.Profile, 0, len(out.Actors))
	for _, a := range out.Actors {
		profiles = append(profiles, a.toProfile())
	}
	return profiles, out.Cursor, nil
}
