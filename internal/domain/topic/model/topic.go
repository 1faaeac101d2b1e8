package model

import "time"

// Vote 用户对帖子或评论的投票, 每个用户在同一目标上最多一条
type Vote struct {
	Username string `json:"username" validate:"required"`
	Value    int    `json:"vote" validate:"oneof=-1 1"`
}

// Topic 帖子
type Topic struct {
	ID           string    `json:"id" validate:"required"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       string    `json:"author"`
	Votes        []Vote    `json:"votes" validate:"dive"`
	Saved        bool      `json:"saved"`
	CommentCount int       `json:"comment_count"`
	ImageURLs    []string  `json:"image_urls"`
	Comments     []Comment `json:"comments,omitempty" validate:"dive"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment 评论, Replies 为子评论, 深度不限
type Comment struct {
	ID        string    `json:"id" validate:"required"`
	ParentID  string    `json:"parent_id,omitempty"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Votes     []Vote    `json:"votes" validate:"dive"`
	Replies   []Comment `json:"replies,omitempty" validate:"dive"`
	CreatedAt time.Time `json:"created_at"`
	// Pending 乐观插入、尚未被服务端确认
	Pending bool `json:"-"`
}

// Score 帖子得分
func (t Topic) Score() int { return Score(t.Votes) }

// Score 评论得分
func (c Comment) Score() int { return Score(c.Votes) }

// Feed 本地帖子列表
type Feed struct {
	Topics  []Topic `json:"topics"`
	Page    int     `json:"page"`
	HasMore bool    `json:"has_more"`
}

// Find 按 id 查找帖子
func (f Feed) Find(id string) (Topic, bool) {
	for _, t := range f.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// With 返回替换或追加 t 后的新 Feed, 不修改原切片
func (f Feed) With(t Topic) Feed {
	topics := make([]Topic, len(f.Topics), len(f.Topics)+1)
	copy(topics, f.Topics)
	for i := range topics {
		if topics[i].ID == t.ID {
			topics[i] = t
			f.Topics = topics
			return f
		}
	}
	f.Topics = append(topics, t)
	return f
}

// Update 对 id 对应的帖子执行 fn, 不存在时原样返回
func (f Feed) Update(id string, fn func(Topic) Topic) Feed {
	t, ok := f.Find(id)
	if !ok {
		return f
	}
	return f.With(fn(t))
}

// Merge 合并一页结果: 第一页整体替换, 后续页按 id 去重追加
func (f Feed) Merge(page int, topics []Topic, hasMore bool) Feed {
	if page <= 1 {
		return Feed{Topics: append([]Topic(nil), topics...), Page: 1, HasMore: hasMore}
	}
	merged := f
	for _, t := range topics {
		merged = merged.With(t)
	}
	merged.Page = page
	merged.HasMore = hasMore
	return merged
}

// FeedResponse GET /v1.0/topics 响应
type FeedResponse struct {
	Topics     []Topic `json:"topics" validate:"required,dive"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
}

// VotesResponse 投票接口响应, 服务端的最新投票列表
type VotesResponse struct {
	Votes []Vote `json:"votes" validate:"required,dive"`
}

// CreateTopicInput 发帖
type CreateTopicInput struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// CommentInput 评论
type CommentInput struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

// ReportInput 举报
type ReportInput struct {
	Reason string `json:"reason"`
}
