package model

// ApplyVote 计算 username 投出 value 后的投票列表, 不修改 votes
//   - 已有相同的票: 移除 (取消投票)
//   - 已有相反的票: 替换
//   - 没有投过: 追加
func ApplyVote(votes []Vote, username string, value int) []Vote {
	next := make([]Vote, 0, len(votes)+1)
	found := false
	for _, v := range votes {
		if v.Username != username {
			next = append(next, v)
			continue
		}
		found = true
		if v.Value != value {
			next = append(next, Vote{Username: username, Value: value})
		}
	}
	if !found {
		next = append(next, Vote{Username: username, Value: value})
	}
	return next
}

// UserVote 返回 username 当前的票, 没有投票为 0
func UserVote(votes []Vote, username string) int {
	for _, v := range votes {
		if v.Username == username {
			return v.Value
		}
	}
	return 0
}

// Score 所有票数之和
func Score(votes []Vote) int {
	total := 0
	for _, v := range votes {
		total += v.Value
	}
	return total
}

// UpdateComment 在评论树中找到 id 并执行 fn, 沿路径复制切片
func UpdateComment(comments []Comment, id string, fn func(Comment) Comment) ([]Comment, bool) {
	for i := range comments {
		if comments[i].ID == id {
			next := append([]Comment(nil), comments...)
			next[i] = fn(comments[i])
			return next, true
		}
		if replies, ok := UpdateComment(comments[i].Replies, id, fn); ok {
			next := append([]Comment(nil), comments...)
			next[i].Replies = replies
			return next, true
		}
	}
	return comments, false
}

// FindComment 在评论树中查找
func FindComment(comments []Comment, id string) (Comment, bool) {
	for _, c := range comments {
		if c.ID == id {
			return c, true
		}
		if found, ok := FindComment(c.Replies, id); ok {
			return found, true
		}
	}
	return Comment{}, false
}

// InsertComment 把 c 插入到 parentID 下, parentID 为空或找不到时作为一级评论
func InsertComment(comments []Comment, parentID string, c Comment) []Comment {
	if parentID != "" {
		if next, ok := UpdateComment(comments, parentID, func(p Comment) Comment {
			p.Replies = append(append([]Comment(nil), p.Replies...), c)
			return p
		}); ok {
			return next
		}
	}
	return append(append([]Comment(nil), comments...), c)
}

// RemoveComment 从评论树中删除 id
func RemoveComment(comments []Comment, id string) ([]Comment, bool) {
	for i := range comments {
		if comments[i].ID == id {
			next := make([]Comment, 0, len(comments)-1)
			next = append(next, comments[:i]...)
			return append(next, comments[i+1:]...), true
		}
		if replies, ok := RemoveComment(comments[i].Replies, id); ok {
			next := append([]Comment(nil), comments...)
			next[i].Replies = replies
			return next, true
		}
	}
	return comments, false
}

// ReplaceComment 用 c 替换 id 对应的评论, 保留原有回复
func ReplaceComment(comments []Comment, id string, c Comment) ([]Comment, bool) {
	return UpdateComment(comments, id, func(old Comment) Comment {
		if len(c.Replies) == 0 {
			c.Replies = old.Replies
		}
		return c
	})
}
