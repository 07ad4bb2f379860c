// Package identity 提供本地身份：匿名登录持久化一个稳定的用户标识，
// 令牌登录从不透明令牌派生标识。存储操作在拿到标识前不会执行。
// Package identity provides the identity collaborator: anonymous sign-in
// persists a stable user id under the state dir, token sign-in derives an id
// from an opaque token. No fallback identity exists; persistence waits until
// an identifier is available.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Identity 当前登录身份 / Identity is the signed-in principal.
type Identity struct {
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous"`
}

// ChangeFunc 身份变化回调；signedIn 为 false 表示登出
// ChangeFunc observes identity changes; signedIn=false means signed out.
type ChangeFunc func(id Identity, signedIn bool)

// Provider 本地身份提供方 / Provider implements the identity collaborator.
type Provider struct {
	stateDir string

	mu        sync.Mutex
	current   Identity
	signedIn  bool
	nextWatch int
	watchers  map[int]ChangeFunc
}

// NewProvider 创建 Provider 并确保状态目录存在
// NewProvider ensures the state directory exists.
func NewProvider(stateDir string) (*Provider, error) {
	stateDir = strings.TrimSpace(stateDir)
	if stateDir == "" {
		return nil, fmt.Errorf("identity state dir is empty")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}
	return &Provider{stateDir: stateDir, watchers: map[int]ChangeFunc{}}, nil
}

// SignInAnonymous 加载或生成稳定的匿名用户标识
// SignInAnonymous loads the persisted anonymous id, generating one on first use.
func (p *Provider) SignInAnonymous() (Identity, error) {
	path := filepath.Join(p.stateDir, "identity.json")

	var id Identity
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &id); jsonErr == nil && strings.TrimSpace(id.UserID) != "" && id.Anonymous {
			p.setCurrent(id)
			return id, nil
		}
	}

	uid, err := newUserID()
	if err != nil {
		return Identity{}, err
	}
	id = Identity{UserID: uid, Anonymous: true}
	data, err = json.MarshalIndent(id, "", "  ")
	if err != nil {
		return Identity{}, fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Identity{}, fmt.Errorf("persist identity: %w", err)
	}
	p.setCurrent(id)
	return id, nil
}

// SignInWithToken 从不透明令牌派生稳定的用户标识
// SignInWithToken derives a stable user id from an opaque token. The token is
// never stored.
func (p *Provider) SignInWithToken(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("token is empty")
	}
	sum := sha256.Sum256([]byte(token))
	id := Identity{UserID: "user_" + hex.EncodeToString(sum[:8])}
	p.setCurrent(id)
	return id, nil
}

// SignOut 清除当前身份并通知观察者
// SignOut clears the current identity and notifies watchers.
func (p *Provider) SignOut() {
	p.mu.Lock()
	p.current = Identity{}
	p.signedIn = false
	watchers := p.watchersLocked()
	p.mu.Unlock()
	for _, cb := range watchers {
		cb(Identity{}, false)
	}
}

// Current 返回当前身份 / Current returns the signed-in identity, if any.
func (p *Provider) Current() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.signedIn
}

// OnIdentityChange 注册观察者，注册时立即回调当前状态；返回注销函数
// OnIdentityChange registers a watcher, invoking it immediately with the
// current state, and returns a cancel function.
func (p *Provider) OnIdentityChange(cb ChangeFunc) func() {
	p.mu.Lock()
	id := p.nextWatch
	p.nextWatch++
	p.watchers[id] = cb
	current, signedIn := p.current, p.signedIn
	p.mu.Unlock()

	cb(current, signedIn)

	return func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}
}

func (p *Provider) setCurrent(id Identity) {
	p.mu.Lock()
	p.current = id
	p.signedIn = true
	watchers := p.watchersLocked()
	p.mu.Unlock()
	for _, cb := range watchers {
		cb(id, true)
	}
}

func (p *Provider) watchersLocked() []ChangeFunc {
	out := make([]ChangeFunc, 0, len(p.watchers))
	for _, cb := range p.watchers {
		out = append(out, cb)
	}
	return out
}

func newUserID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return fmt.Sprintf("user_%d_%s", time.Now().UTC().Unix(), hex.EncodeToString(buf)), nil
}
