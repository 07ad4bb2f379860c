// Package player 管理专注音乐流的播放地址：按用户持久化自定义 URL，
// 未设置或非法时回退到默认歌单。
// Package player manages the focus-music stream URL: a per-user custom URL is
// persisted through the settings store, falling back to the default playlist
// when unset or invalid.
package player

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultPlaylistURL 默认专注歌单 / DefaultPlaylistURL is the built-in stream.
const DefaultPlaylistURL = "https://www.youtube.com/watch?v=jfKfPfyJRdk"

// SettingsStore 音乐设置的持久化接口 / SettingsStore persists the music URL.
type SettingsStore interface {
	MusicURL(userID string) (string, error)
	SetMusicURL(userID, rawURL string) error
}

// Player 解析某个用户当前应播放的流地址
// Player resolves the stream URL to play for a user.
type Player struct {
	settings SettingsStore
	fallback string
}

// New 创建 Player；fallback 为空时使用 DefaultPlaylistURL
// New builds a Player; an empty fallback means DefaultPlaylistURL.
func New(settings SettingsStore, fallback string) *Player {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultPlaylistURL
	}
	return &Player{settings: settings, fallback: fallback}
}

// URLFor 返回该用户的播放地址；未设置、读取失败或已持久化的值非法时
// 回退到默认地址。
// URLFor returns the user's stream URL, falling back to the default when the
// setting is absent, unreadable, or no longer a valid http(s) URL.
func (p *Player) URLFor(userID string) string {
	raw, err := p.settings.MusicURL(userID)
	if err != nil {
		return p.fallback
	}
	if !validStreamURL(raw) {
		return p.fallback
	}
	return raw
}

// SetURL 校验并持久化自定义地址；空串表示清除自定义值回到默认
// SetURL validates and persists a custom URL; an empty string clears the
// customization back to the default.
func (p *Player) SetURL(userID, rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		if err := p.settings.SetMusicURL(userID, ""); err != nil {
			return fmt.Errorf("clear music url: %w", err)
		}
		return nil
	}
	if !validStreamURL(rawURL) {
		return fmt.Errorf("invalid music url %q: must be an absolute http(s) URL", rawURL)
	}
	if err := p.settings.SetMusicURL(userID, rawURL); err != nil {
		return fmt.Errorf("save music url: %w", err)
	}
	return nil
}

func validStreamURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
