package utils

import (
	"net/url"
	"strconv"
)

// Pagination 分页请求参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// Normalize 修正非法的分页参数
func (p *Pagination) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
}

// PagePath 拼接带分页参数的路径, limit 为 0 时不带 limit
func PagePath(path string, p Pagination) string {
	p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return path + "?" + q.Encode()
}
