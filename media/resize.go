package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"equipment_loan_tool/config"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

var ErrResizeNoURL = errors.New("resize function returned no url")

type resizeRequest struct {
	Image       string `json:"image"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	Quality     int    `json:"quality"`
}

// Resizer 通过 HTTP 调用外部压缩函数
type Resizer struct {
	client *resty.Client
	conf   config.Resize
}

func NewResizer(conf config.Resize) *Resizer {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resizer{
		client: resty.New().SetTimeout(timeout).SetHeader("Content-Type", "application/json"),
		conf:   conf,
	}
}

// Resize 上传原图，返回压缩后图片的 URL
func (r *Resizer) Resize(ctx context.Context, name, contentType string, data []byte) (string, error) {
	resp, err := r.client.R().SetContext(ctx).
		SetBody(resizeRequest{
			Image:       base64.StdEncoding.EncodeToString(data),
			FileName:    name,
			ContentType: contentType,
			Width:       r.conf.Width,
			Height:      r.conf.Height,
			Format:      r.conf.Format,
			Quality:     r.conf.Quality,
		}).
		Post(r.conf.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invoke resize: %w", err)
	}
	url, perr := parseResizePayload(resp.Body())
	if !resp.IsSuccess() {
		if perr != nil {
			return "", fmt.Errorf("resize status %d: %w", resp.StatusCode(), perr)
		}
		return "", fmt.Errorf("resize status %d", resp.StatusCode())
	}
	return url, perr
}

// parseResizePayload 兼容 {url}、{success,url,error} 和网关代理的
// {statusCode, body} 形式，body 本身是 JSON 字符串
func parseResizePayload(b []byte) (string, error) {
	if !gjson.ValidBytes(b) {
		return "", fmt.Errorf("resize payload is not json")
	}
	res := gjson.ParseBytes(b)
	if body := res.Get("body"); body.Type == gjson.String && gjson.Valid(body.String()) {
		if code := res.Get("statusCode"); code.Exists() && code.Int() >= 400 {
			if msg := gjson.Get(body.String(), "error").String(); msg != "" {
				return "", errors.New(msg)
			}
			return "", fmt.Errorf("resize status %d", code.Int())
		}
		res = gjson.Parse(body.String())
	}
	if msg := res.Get("error"); msg.Exists() && msg.String() != "" {
		return "", errors.New(msg.String())
	}
	if ok := res.Get("success"); ok.Exists() && !ok.Bool() {
		return "", errors.New("resize failed")
	}
	url := res.Get("url").String()
	if url == "" {
		return "", ErrResizeNoURL
	}
	return url, nil
}
