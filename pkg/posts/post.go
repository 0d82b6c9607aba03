package posts

// Post is the denormalized post projection held by every cached post view
// (timeline, feed, author feed, thread). The viewer-facing mutation state is
// the (Liked, LikeCount, ViewerLike) and (Reposted, RepostCount,
// ViewerRepost) triples; ViewerLike/ViewerRepost hold the at:// URI of the
// viewer's own like/repost record, an optimistic:// marker while the record
// is unconfirmed, or "" when the viewer has not acted.
type Post struct {
	URI string `json:"uri" bson:"uri" msgpack:"uri"`
	CID string `json:"cid" bson:"cid" msgpack:"cid"`

	AuthorDID         string `json:"author_did" bson:"author_did" msgpack:"author_did"`
	AuthorHandle      string `json:"author_handle" bson:"author_handle" msgpack:"author_handle"`
	AuthorDisplayName string `json:"author_display_name,omitempty" bson:"author_display_name,omitempty" msgpack:"author_display_name,omitempty"`
	AuthorAvatar      string `json:"author_avatar,omitempty" bson:"author_avatar,omitempty" msgpack:"author_avatar,omitempty"`

	IsRepost              bool   `json:"is_repost,omitempty" bson:"is_repost,omitempty" msgpack:"is_repost,omitempty"`
	RepostedByHandle      string `json:"reposted_by_handle,omitempty" bson:"reposted_by_handle,omitempty" msgpack:"reposted_by_handle,omitempty"`
	RepostedByDisplayName string `json:"reposted_by_display_name,omitempty" bson:"reposted_by_display_name,omitempty" msgpack:"reposted_by_display_name,omitempty"`

	Text      string `json:"text" bson:"text" msgpack:"text"`
	CreatedAt string `json:"created_at" bson:"created_at" msgpack:"created_at"`

	ReplyCount  int64 `json:"reply_count" bson:"reply_count" msgpack:"reply_count"`
	RepostCount int64 `json:"repost_count" bson:"repost_count" msgpack:"repost_count"`
	LikeCount   int64 `json:"like_count" bson:"like_count" msgpack:"like_count"`

	Liked        bool   `json:"liked" bson:"liked" msgpack:"liked"`
	Reposted     bool   `json:"reposted" bson:"reposted" msgpack:"reposted"`
	ViewerLike   string `json:"viewer_like,omitempty" bson:"viewer_like,omitempty" msgpack:"viewer_like,omitempty"`
	ViewerRepost string `json:"viewer_repost,omitempty" bson:"viewer_repost,omitempty" msgpack:"viewer_repost,omitempty"`
}

func (p Post) EntityKey() string { return p.URI }

// Profile is the actor projection served alongside author feeds.
type Profile struct {
	DID            string `json:"did" bson:"did" msgpack:"did"`
	Handle         string `json:"handle" bson:"handle" msgpack:"handle"`
	DisplayName    string `json:"display_name,omitempty" bson:"display_name,omitempty" msgpack:"display_name,omitempty"`
	Description    string `json:"description,omitempty" bson:"description,omitempty" msgpack:"description,omitempty"`
	Avatar         string `json:"avatar,omitempty" bson:"avatar,omitempty" msgpack:"avatar,omitempty"`
	Banner         string `json:"banner,omitempty" bson:"banner,omitempty" msgpack:"banner,omitempty"`
	FollowersCount int64  `json:"followers_count" bson:"followers_count" msgpack:"followers_count"`
	FollowsCount   int64  `json:"follows_count" bson:"follows_count" msgpack:"follows_count"`
	PostsCount     int64  `json:"posts_count" bson:"posts_count" msgpack:"posts_count"`
	ViewerFollow   string `json:"viewer_follow,omitempty" bson:"viewer_follow,omitempty" msgpack:"viewer_follow,omitempty"`
	ViewerMuted    bool   `json:"viewer_muted,omitempty" bson:"viewer_muted,omitempty" msgpack:"viewer_muted,omitempty"`
}
